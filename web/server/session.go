package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Bucknalla/go-vehicle-tracker/track"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message types sent to playback clients.
const (
	MessageSession = "session"
	MessageView    = "view"
	MessageFrame   = "frame"
	MessageError   = "error"
)

// Message is a server to client websocket message.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Command is a client to server websocket message.
type Command struct {
	Action     string   `json:"action" validate:"required,oneof=load toggle seek retry interval"`
	Date       string   `json:"date,omitempty" validate:"required_if=Action load"`
	Fraction   *float64 `json:"fraction,omitempty" validate:"required_if=Action seek"`
	IntervalMS *int64   `json:"interval_ms,omitempty" validate:"required_if=Action interval"`
}

var validate = validator.New()

// Session is one websocket client driving its own Player.
type Session struct {
	id       string
	conn     *websocket.Conn
	player   *track.Player
	provider track.Provider
	logger   zerolog.Logger

	send chan Message
	done chan struct{}
	once sync.Once
}

func newSession(id string, conn *websocket.Conn, provider track.Provider, player *track.Player, logger zerolog.Logger) *Session {
	return &Session{
		id:       id,
		conn:     conn,
		player:   player,
		provider: provider,
		logger:   logger,
		send:     make(chan Message, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	id := uuid.NewString()
	logger := s.logger.With().Str("session", id).Logger()
	player := track.NewPlayer(s.opts.Clock, s.opts.DefaultInterval, logger)
	sess := newSession(id, conn, s.store, player, logger)

	s.sessions.Add(sess)
	logger.Info().Str("remote", r.RemoteAddr).Int("sessions", s.sessions.Count()).Msg("Playback session opened")

	sess.Serve()

	s.sessions.Remove(id)
	logger.Info().Int("sessions", s.sessions.Count()).Msg("Playback session closed")
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Serve runs the session until the client goes away or the session is closed.
func (s *Session) Serve() {
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.player.AddCallback(func(f track.Frame) {
		s.enqueue(Message{Type: MessageFrame, Data: f})
	}); err != nil {
		return
	}

	go s.writePump()

	s.enqueue(Message{Type: MessageSession, Data: map[string]string{"id": s.id}})
	if f, err := s.player.Snapshot(); err == nil {
		s.enqueue(Message{Type: MessageFrame, Data: f})
	}

	s.readPump(ctx)
}

// Close ends the session and its playback. It is safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.player.Close()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = s.conn.Close()
	})
}

func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.sendError(fmt.Sprintf("invalid message: %v", err))
			continue
		}
		if err := validate.Struct(cmd); err != nil {
			s.sendError(fmt.Sprintf("invalid command: %v", err))
			continue
		}

		if err := s.handle(ctx, cmd); err != nil {
			if errors.Is(err, track.ErrPlayerClosed) {
				return
			}
			s.sendError(err.Error())
		}
	}
}

// handle applies cmd to the player. A failed route fetch leaves playback untouched.
func (s *Session) handle(ctx context.Context, cmd Command) error {
	var err error
	switch cmd.Action {
	case "load":
		var route track.Route
		route, err = s.provider.FetchRoute(ctx, cmd.Date)
		if err != nil {
			s.logger.Warn().Err(err).Str("date", cmd.Date).Msg("Route query failed")
			return fmt.Errorf("failed to load route for %s: %w", cmd.Date, err)
		}
		var current *track.Position
		if first, ok := route.First(); ok {
			current = &first
		}
		s.enqueue(Message{Type: MessageView, Data: track.Render(route, current)})
		_, err = s.player.Load(route)
	case "toggle":
		_, err = s.player.Toggle()
	case "seek":
		_, err = s.player.Seek(*cmd.Fraction)
	case "retry":
		_, err = s.player.Retry()
	case "interval":
		_, err = s.player.SetInterval(time.Duration(*cmd.IntervalMS) * time.Millisecond)
	}
	return err
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case m := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(m); err != nil {
				s.logger.Debug().Err(err).Msg("WebSocket write error")
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.Close()
				return
			}
		}
	}
}

// enqueue queues m for the client, dropping it if the client is not keeping up.
func (s *Session) enqueue(m Message) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- m:
	case <-s.done:
	default:
		s.logger.Warn().Str("type", m.Type).Msg("Session send buffer full, dropping message")
	}
}

func (s *Session) sendError(message string) {
	s.enqueue(Message{Type: MessageError, Data: map[string]string{"message": message}})
}
