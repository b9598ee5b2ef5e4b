package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

// Treap-based, in-memory ledger and ranking.
//
// Ordering: points DESC, then player ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the ladder
// from best to worst.

type standing struct {
	points int64
	games  int
}

type node struct {
	player string
	points int64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aPts, aID) appears before (bPts, bID).
func less(aPts int64, aID string, bPts int64, bID string) bool {
	if aPts != bPts {
		return aPts > bPts
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, player string, points int64, prio uint64) *node {
	if n == nil {
		return &node{player: player, points: points, prio: prio, size: 1}
	}
	if less(points, player, n.points, n.player) {
		n.left = insert(n.left, player, points, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, player, points, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, player string, points int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case points == n.points && player == n.player:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, player, points)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, player, points)
		}
	case less(points, player, n.points, n.player):
		n.left = deleteNode(n.left, player, points)
	default:
		n.right = deleteNode(n.right, player, points)
	}
	fix(n)
	return n
}

// collect appends up to limit rows in rank order; limit < 0 means all.
func collect(n *node, limit int, byPlayer map[string]standing, out *[]types.RankedPlayer) {
	if n == nil || (limit >= 0 && len(*out) >= limit) {
		return
	}
	collect(n.left, limit, byPlayer, out)
	if limit < 0 || len(*out) < limit {
		st := byPlayer[n.player]
		*out = append(*out, types.RankedPlayer{Player: n.player, Points: float64(st.points), Games: st.games})
	}
	collect(n.right, limit, byPlayer, out)
}

// MemoryStore keeps games and standings in process memory. It is the
// default backend and the one the simulator drives.
type MemoryStore struct {
	mu        sync.RWMutex
	root      *node
	byPlayer  map[string]standing
	sessions  map[string]struct{}
	games     []model.GameRecord
	templates []string
	rnd       *rand.Rand
	logger    logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions("memory_store", opts)
	now := uint64(time.Now().UnixNano())
	return &MemoryStore{
		byPlayer:  make(map[string]standing),
		sessions:  make(map[string]struct{}),
		templates: o.templates,
		rnd:       rand.New(rand.NewPCG(now, now>>1|1)),
		logger:    o.logger,
	}
}

// Append records g and adds each player's VP to their standing.
func (s *MemoryStore) Append(ctx context.Context, g model.GameRecord) error {
	start := time.Now()
	defer func() { metrics.RecordPersistenceLatency(float64(time.Since(start).Milliseconds())) }()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.sessions[g.SessionID]; dup {
		return fmt.Errorf("%w: session %s", ErrDuplicateGame, g.SessionID)
	}
	s.sessions[g.SessionID] = struct{}{}
	s.games = append(s.games, g)

	for _, e := range g.Scores {
		name := e.Player.Name
		old, ok := s.byPlayer[name]
		if ok {
			s.root = deleteNode(s.root, name, old.points)
		}
		st := standing{points: old.points + int64(e.Score), games: old.games + 1}
		s.byPlayer[name] = st
		s.root = insert(s.root, name, st.points, s.rnd.Uint64())
	}
	s.logger.Debug(ctx, "game appended",
		logger.String("session_id", g.SessionID),
		logger.Int("players", g.PlayerCount()),
	)
	return nil
}

// TopN returns the n best players with dense ranks.
func (s *MemoryStore) TopN(ctx context.Context, n int) ([]types.RankedPlayer, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	all := make([]types.RankedPlayer, 0, len(s.byPlayer))
	collect(s.root, -1, s.byPlayer, &all)
	s.mu.RUnlock()

	// Ranks depend on every player above, so rank before truncating.
	assignRanksWithTies(all)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Rank returns one player's standing.
func (s *MemoryStore) Rank(ctx context.Context, player string) (types.RankedPlayer, error) {
	s.mu.RLock()
	_, ok := s.byPlayer[player]
	if !ok {
		s.mu.RUnlock()
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.RankedPlayer{}, ErrNotFound
	}
	all := make([]types.RankedPlayer, 0, len(s.byPlayer))
	collect(s.root, -1, s.byPlayer, &all)
	s.mu.RUnlock()

	assignRanksWithTies(all)
	for _, r := range all {
		if r.Player == player {
			return r, nil
		}
	}
	return types.RankedPlayer{}, ErrNotFound
}

// TeasingTemplates returns the configured templates.
func (s *MemoryStore) TeasingTemplates(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.templates), nil
}

// Games returns a copy of every recorded game in append order.
func (s *MemoryStore) Games() []model.GameRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.games)
}

// CountGames returns the number of recorded games.
func (s *MemoryStore) CountGames(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games), nil
}

// Players returns the number of ranked players.
func (s *MemoryStore) Players() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPlayer)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
