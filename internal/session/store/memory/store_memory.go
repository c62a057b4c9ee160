// Package memory keeps the session record in process memory. Used by tests and
// by runs that should not outlive the process.
package memory

import (
	"context"
	"sync"

	"trustid/pkg/platform/sentinel"
)

type Store struct {
	mu   sync.RWMutex
	data []byte
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *Store) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte{}, data...)
	return nil
}

func (s *Store) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
