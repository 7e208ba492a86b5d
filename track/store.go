package track

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Provider returns the route recorded on a calendar day.
type Provider interface {
	FetchRoute(ctx context.Context, dateKey string) (Route, error)
}

// Store is a file-backed Provider. It keeps every record of the source file in memory
// and filters them by the UTC calendar date of their timestamp.
type Store struct {
	path   string
	logger zerolog.Logger

	mu        sync.RWMutex
	positions []Position
}

// LoadStore reads the JSON array of positions at path. A missing or malformed file is an error.
func LoadStore(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore creates a Store over an in-memory set of positions.
func NewStore(positions []Position, logger zerolog.Logger) *Store {
	return &Store{positions: positions, logger: logger}
}

// ReadPositions decodes a JSON array of positions. Every position must carry a timestamp.
func ReadPositions(r io.Reader) ([]Position, error) {
	var positions []Position
	if err := json.NewDecoder(r).Decode(&positions); err != nil {
		return nil, fmt.Errorf("failed to decode positions: %w", err)
	}
	for i, p := range positions {
		if p.Date.IsZero() {
			return nil, fmt.Errorf("position %d: %w", i, ErrMissingTimestamp)
		}
	}
	return positions, nil
}

// Reload re-reads the source file. On failure the previously loaded records are kept.
func (s *Store) Reload() error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open route file %s: %w", s.path, err)
	}
	defer file.Close()

	positions, err := ReadPositions(file)
	if err != nil {
		return fmt.Errorf("failed to parse route file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.positions = positions
	s.mu.Unlock()

	s.logger.Info().Str("path", s.path).Int("records", len(positions)).Msg("Route file loaded")
	return nil
}

// FetchRoute returns the records whose UTC date equals dateKey, in source order.
// No match yields an empty route, never an error.
func (s *Store) FetchRoute(ctx context.Context, dateKey string) (Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	route := Route{}
	for _, p := range s.positions {
		if p.DateKey() == dateKey {
			route = append(route, p)
		}
	}
	return route, nil
}

// Len returns the number of records loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// Dates returns the distinct date keys present in the store, ascending.
func (s *Store) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	dates := []string{}
	for _, p := range s.positions {
		key := p.DateKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, key)
	}
	sort.Strings(dates)
	return dates
}

// Watch reloads the store whenever its source file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are picked up.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Error().Err(err).Msg("Route file reload failed, keeping previous records")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("Route file watcher error")
		}
	}
}
