package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/catanbot/pkg/clock"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

const (
	defaultTTL    = 30 * time.Minute
	maxIDAttempts = 5
)

type entry struct {
	createdAt time.Time // immutable, read by Sweep without the entry lock

	mu      sync.Mutex
	session Session
}

// Store is the process-wide registry of sessions. Each session has its own
// lock so the guard check and the mutation of a step run as one critical
// section, while different sessions proceed independently.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	ttl    time.Duration
	clock  clock.Clock
	newID  func() string
	logger logger.Logger
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		ttl:     defaultTTL,
		clock:   clock.New(),
		newID:   uuid.NewString,
		logger:  logger.Get().Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the expiry window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create allocates a new session owned by ownerID and returns its ID.
func (s *Store) Create(ctx context.Context, ownerID string) (string, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		if _, taken := s.entries[id]; taken {
			s.logger.Warn(ctx, "session id collision", logger.String("session_id", id), logger.Int("attempt", attempt))
			continue
		}
		s.entries[id] = &entry{
			createdAt: now,
			session:   Session{ID: id, OwnerID: ownerID, CreatedAt: now},
		}
		metrics.RecordSessionCreated()
		metrics.UpdateSessionsActive(len(s.entries))
		return id, nil
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIDCollision, maxIDAttempts)
}

// Get returns a copy of the session. Expired sessions are reported as not
// found even before the sweeper removes them.
func (s *Store) Get(_ context.Context, id string) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone(), nil
}

// Update applies fn to a copy of the session under the session's lock and
// stores the copy only when fn succeeds, so a failed step leaves no partial
// write. It returns the session as stored afterwards.
func (s *Store) Update(_ context.Context, id string, fn func(*Session) error) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The sweeper may have removed the entry while we waited for the lock.
	if s.expired(e.createdAt, s.clock.Now()) {
		return Session{}, ErrSessionNotFound
	}

	next := e.session.clone()
	if err := fn(&next); err != nil {
		return Session{}, err
	}
	// Completed never goes back to false.
	next.Completed = next.Completed || e.session.Completed
	next.ID, next.OwnerID, next.CreatedAt = e.session.ID, e.session.OwnerID, e.session.CreatedAt
	e.session = next
	return next.clone(), nil
}

// Sweep removes every session older than the TTL and returns how many were
// removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if s.expired(e.createdAt, now) {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.RecordSessionsExpired(removed)
	}
	metrics.UpdateSessionsActive(len(s.entries))
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.clock.Now()); n > 0 {
				s.logger.Debug(ctx, "swept expired sessions", logger.Int("removed", n), logger.Int("remaining", s.Len()))
			}
		}
	}
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || s.expired(e.createdAt, s.clock.Now()) {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *Store) expired(createdAt, now time.Time) bool {
	return !now.Before(createdAt.Add(s.ttl))
}
