package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Manager hands out sessions one turn at a time. Turns of different users
// run in parallel; overlapping turns of the same user are serialized.
type Manager struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		locks: make(map[string]*userLock),
	}
}

// WithSession loads (or lazily creates) the user's session, runs fn on it
// while holding the user's lock and saves the result. created is true when
// the session did not exist before this turn. The session is not saved
// when fn returns an error.
func (m *Manager) WithSession(ctx context.Context, userID string, fn func(s *Session, created bool) error) error {
	unlock := m.lock(userID)
	defer unlock()

	s, err := m.store.Get(ctx, userID)
	created := false
	switch {
	case errors.Is(err, ErrNotFound):
		s = New(userID)
		created = true
	case err != nil:
		return fmt.Errorf("store.Get failed: %w", err)
	}
	if !s.State.Valid() {
		// stored by an older build or corrupted, start over
		s.Reset()
	}

	if err := fn(s, created); err != nil {
		return err
	}

	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("store.Save failed: %w", err)
	}
	return nil
}

// GetUserDialogState returns a snapshot of the user's session.
func (m *Manager) GetUserDialogState(ctx context.Context, userID string) (*Session, error) {
	s, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("store.Get failed: %w", err)
	}
	return s, nil
}

// ClearState drops the user's session entirely.
func (m *Manager) ClearState(ctx context.Context, userID string) error {
	unlock := m.lock(userID)
	defer unlock()
	return m.store.Delete(ctx, userID)
}

func (m *Manager) lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, userID)
		}
		m.mu.Unlock()
	}
}
