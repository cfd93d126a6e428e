package session

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps sessions in a process-local map. Suited to tests and
// single-instance pilots; state is lost on restart.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory Store implementation.
func NewMemoryStore(opts Options) Store {
	return &memoryStore{
		sessions: make(map[string]*Session),
		opts:     opts,
		now:      time.Now,
	}
}

func (m *memoryStore) LoadOrCreate(ctx context.Context, id, caller string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		if !s.IdleAt(now, m.opts.IdleTimeout) {
			return s.Clone(), nil
		}
		delete(m.sessions, id)
	}

	fresh := New(id, caller, m.opts.RootNode, now)
	m.sessions[id] = fresh.Clone()
	return fresh, nil
}

func (m *memoryStore) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memoryStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	swept := 0
	for id, s := range m.sessions {
		if s.IdleAt(now, m.opts.IdleTimeout) {
			delete(m.sessions, id)
			swept++
		}
	}
	return swept, nil
}

func (m *memoryStore) Close() error {
	return nil
}
