package server

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Sessions is the registry of live playback sessions, keyed by session id.
type Sessions struct {
	m cmap.ConcurrentMap[string, *Session]
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{m: cmap.New[*Session]()}
}

func (s *Sessions) Add(sess *Session) {
	s.m.Set(sess.ID(), sess)
}

func (s *Sessions) Get(id string) (*Session, bool) {
	return s.m.Get(id)
}

func (s *Sessions) Remove(id string) {
	s.m.Remove(id)
}

func (s *Sessions) Count() int {
	return s.m.Count()
}

// CloseAll closes and removes every session, returning how many there were.
func (s *Sessions) CloseAll() int {
	closed := 0
	for _, id := range s.m.Keys() {
		if sess, ok := s.m.Pop(id); ok {
			sess.Close()
			closed++
		}
	}
	return closed
}
