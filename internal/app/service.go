// Package service wires the bot: storage, sessions, the persistence worker
// pool and the interaction router.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	eventqueue "github.com/okian/catanbot/internal/adapters/mq/queue"
	workerpool "github.com/okian/catanbot/internal/adapters/mq/worker"
	repository "github.com/okian/catanbot/internal/adapters/repository"
	"github.com/okian/catanbot/internal/config"
	"github.com/okian/catanbot/internal/domain/dedupe"
	"github.com/okian/catanbot/internal/domain/session"
	"github.com/okian/catanbot/internal/domain/tease"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/internal/router"
	"github.com/okian/catanbot/internal/workflow"
	"github.com/okian/catanbot/pkg/clock"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

// ErrNotStarted is returned by reads issued before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns every long-lived component of the bot.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store    repository.Store
	sessions *session.Store
	deduper  dedupe.Deduper
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	router   *router.Router

	// Outputs of the worker pool
	publisher workerpool.Publisher
	notifier  workerpool.Notifier

	clock clock.Clock

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc
	sweepDone chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a result store instead of opening the configured one.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sets where game summaries are posted.
func WithPublisher(p workerpool.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithNotifier sets how the final outcome reaches the submitter.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock sets the clock used for sessions and game timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// New constructs a Service for cfg. A nil cfg uses config defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:   cfg,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start opens storage and starts the sweeper and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.publisher == nil || s.notifier == nil {
		out := logOutput{logger: logger.Get().Named("output")}
		if s.publisher == nil {
			s.publisher = out
		}
		if s.notifier == nil {
			s.notifier = out
		}
	}

	s.logger.Info(ctx, "starting catan bot service...", logger.String("storage", s.cfg.Storage))

	if s.store == nil {
		s.store = s.openStore(ctx)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.sessions = session.NewStore(
		session.WithTTL(s.cfg.SessionTTL),
		session.WithClock(s.clock),
		session.WithLogger(logger.Get().Named("session")),
	)
	s.sweepDone = make(chan struct{})
	go func() {
		defer close(s.sweepDone)
		s.sessions.RunSweeper(runCtx, s.cfg.SweepInterval)
	}()

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.QueueSize))

	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, workerpool.Deps{
		Ledger:    s.store,
		Publisher: s.publisher,
		Notifier:  s.notifier,
	})
	s.pool.Start(runCtx)

	flow := workflow.NewGameEntry(s.sessions, s.queue,
		workflow.WithScoringChannel(s.cfg.ScoringChannelID),
		workflow.WithClock(s.clock),
	)
	league := workflow.NewLeague(s.store, tease.NewSelector(s.store), s.cfg.LadderSize, nil)
	s.router = router.New(flow, league, s.deduper, nil)

	s.started = true
	s.startedAt = s.clock.Now()
	s.logger.Info(ctx, "catan bot service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.Int("dedupe_size", s.cfg.DedupeSize),
		logger.Duration("session_ttl", s.cfg.SessionTTL),
	)
	return nil
}

// openStore opens the configured backend. Failures leave the bot running
// with a store that reports the misconfiguration on every call.
func (s *Service) openStore(ctx context.Context) repository.Store {
	store, err := OpenStore(ctx, s.cfg)
	if err != nil {
		s.logger.Error(ctx, "result storage unavailable", logger.String("storage", s.cfg.Storage), logger.Error(err))
		metrics.RecordErrorByComponent("storage", "open")
		return repository.Unavailable{Cause: err}
	}
	return store
}

// OpenStore opens the backend selected by cfg.Storage. Remote backends are
// wrapped so idempotent reads are retried.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithTeasingTemplates(cfg.TeasingTemplates),
		repository.WithRetryMaxElapsed(cfg.ReadRetryMaxElapsed),
	}

	switch cfg.Storage {
	case config.StorageMemory:
		return repository.NewMemoryStore(opts...), nil
	case config.StorageSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		return repository.NewRetrying(db, opts...), nil
	case config.StorageSheets:
		api, err := repository.NewSheetsValues(ctx, cfg.SheetID, cfg.GoogleCredentialsFile, cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, err
		}
		sheet := repository.NewSheetsStore(api, repository.SheetsLayout{
			ScoresTab:    cfg.SheetScoresTab,
			RankingRange: cfg.SheetRankingRange,
			LookupInput:  cfg.SheetLookupInput,
			LookupResult: cfg.SheetLookupResult,
			TeasingRange: cfg.SheetTeasingRange,
		}, opts...)
		return repository.NewRetrying(sheet, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage %q", config.ErrInvalidConfig, cfg.Storage)
	}
}

// Stop drains pending record jobs, stops the sweeper and closes storage.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping catan bot service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	<-s.sweepDone

	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "catan bot service stopped")
	return errors.Join(errs...)
}

// Handle routes one interaction. Interactions arriving while stopped are
// dropped.
func (s *Service) Handle(ctx context.Context, in router.Interaction, resp router.Responder) {
	s.mu.RLock()
	r := s.router
	started := s.started
	s.mu.RUnlock()

	if !started {
		s.logger.Warn(ctx, "interaction received while stopped", logger.String("interaction_id", in.ID))
		return
	}
	r.Handle(ctx, in, resp)
}

// TopN returns the top n ranked players.
func (s *Service) TopN(ctx context.Context, n int) ([]types.RankedPlayer, error) {
	store, err := s.rankings()
	if err != nil {
		return nil, err
	}
	return store.TopN(ctx, n)
}

// Rank returns one player's ranking row.
func (s *Service) Rank(ctx context.Context, player string) (types.RankedPlayer, error) {
	store, err := s.rankings()
	if err != nil {
		return types.RankedPlayer{}, err
	}
	return store.Rank(ctx, player)
}

func (s *Service) rankings() (repository.RankingReader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"storage":     s.cfg.Storage,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(context.Background())
	active := s.sessions.Len()
	stats["uptime"] = s.clock.Now().Sub(s.startedAt).Round(time.Second).String()
	stats["queueLength"] = queueLen
	stats["activeSessions"] = active
	stats["seenInteractions"] = s.deduper.Size()
	if c, ok := s.store.(repository.GameCounter); ok {
		if n, err := c.CountGames(context.Background()); err == nil {
			stats["storedGames"] = n
		}
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateSessionsActive(active)
	return stats
}

// logOutput stands in for the chat platform when none is configured.
type logOutput struct {
	logger logger.Logger
}

func (o logOutput) PublishSummary(ctx context.Context, content string) error {
	o.logger.Info(ctx, "game summary", logger.String("content", content))
	return nil
}

func (o logOutput) FollowUp(ctx context.Context, _ ui.InteractionRef, reply ui.Reply) error {
	o.logger.Info(ctx, "follow-up", logger.String("content", reply.Content))
	return nil
}
