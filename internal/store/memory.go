package store

import (
	"context"
	"sync"
)

// Memory is a process-local backend, used by tests and STORE_BACKEND=memory.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
	// FailWrites makes Put fail, to exercise best-effort persistence.
	FailWrites error
}

func NewMemory() *Memory { return &Memory{m: map[string][]byte{}} }

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.m[key] = append([]byte(nil), value...)
	return nil
}
