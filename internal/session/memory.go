package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore keeps sessions in process memory. Sessions idle for longer
// than ttl are evicted by Sweep, and the store never holds more than
// maxEntries sessions: the least recently used one goes first.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	order      *list.List
	items      map[string]*list.Element
	now        func() time.Time
	logger     *zap.Logger
}

type memoryEntry struct {
	session  *Session
	lastSeen time.Time
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates a store. ttl <= 0 disables expiry and
// maxEntries <= 0 disables the size cap.
func NewMemoryStore(ttl time.Duration, maxEntries int, logger *zap.Logger, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[userID]
	if !ok {
		return nil, ErrNotFound
	}
	entry := el.Value.(*memoryEntry)
	if m.expired(entry) {
		m.removeElement(el)
		return nil, ErrNotFound
	}
	entry.lastSeen = m.now()
	m.order.MoveToFront(el)
	return entry.session.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[s.UserID]; ok {
		entry := el.Value.(*memoryEntry)
		entry.session = s.Clone()
		entry.lastSeen = m.now()
		m.order.MoveToFront(el)
		return nil
	}

	el := m.order.PushFront(&memoryEntry{session: s.Clone(), lastSeen: m.now()})
	m.items[s.UserID] = el

	for m.maxEntries > 0 && m.order.Len() > m.maxEntries {
		oldest := m.order.Back()
		m.logger.Debug("Evicting least recently used session",
			zap.String("user_id", oldest.Value.(*memoryEntry).session.UserID))
		m.removeElement(oldest)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[userID]; ok {
		m.removeElement(el)
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Sweep removes every expired session and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if !m.expired(el.Value.(*memoryEntry)) {
			// list is ordered by recency, everything in front is newer
			break
		}
		m.removeElement(el)
		removed++
		el = prev
	}
	return removed
}

// RunJanitor calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("Expired sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func (m *MemoryStore) expired(e *memoryEntry) bool {
	return m.ttl > 0 && m.now().Sub(e.lastSeen) > m.ttl
}

func (m *MemoryStore) removeElement(el *list.Element) {
	entry := m.order.Remove(el).(*memoryEntry)
	delete(m.items, entry.session.UserID)
}
