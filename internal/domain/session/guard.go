package session

import (
	"context"
	"errors"

	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

// Guard validates that an actor may act on a session.
type Guard struct {
	store  *Store
	logger logger.Logger
}

// NewGuard creates a Guard over store.
func NewGuard(store *Store, l logger.Logger) *Guard {
	if l == nil {
		l = logger.Get().Named("guard")
	}
	return &Guard{store: store, logger: l}
}

// Validate returns the session when actorID may act on it.
func (g *Guard) Validate(ctx context.Context, id, actorID string) (Session, error) {
	s, err := g.store.Get(ctx, id)
	if err == nil {
		err = check(s, actorID)
	}
	if err != nil {
		g.reject(ctx, id, actorID, err)
		return Session{}, err
	}
	return s, nil
}

// Apply validates and then runs fn inside the session's critical section.
// Nothing is written when validation or fn fails.
func (g *Guard) Apply(ctx context.Context, id, actorID string, fn func(*Session) error) (Session, error) {
	var rejected error
	s, err := g.store.Update(ctx, id, func(s *Session) error {
		if rejected = check(*s, actorID); rejected != nil {
			return rejected
		}
		return fn(s)
	})
	if err == nil {
		return s, nil
	}
	if rejected != nil || errors.Is(err, ErrSessionNotFound) {
		g.reject(ctx, id, actorID, err)
	}
	return Session{}, err
}

func check(s Session, actorID string) error {
	if s.Completed {
		return ErrSessionCompleted
	}
	if s.OwnerID != actorID {
		return ErrOwnerMismatch
	}
	return nil
}

func (g *Guard) reject(ctx context.Context, id, actorID string, err error) {
	reason := Reason(err)
	metrics.RecordGuardRejection(reason)
	g.logger.Info(ctx, "session guard rejected action",
		logger.String("session_id", id),
		logger.String("actor_id", actorID),
		logger.String("reason", reason),
	)
}
