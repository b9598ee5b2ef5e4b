// Package worker persists finished games and reports back to the player
// who logged them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/catanbot/internal/adapters/repository"
	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/summary"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	defaultJobTimeout   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Final confirmations sent to the player after the job ran.
const (
	MsgRecorded          = "✅ **Game recorded!** Summary posted to channel and saved."
	MsgRecordedNoSummary = "✅ **Game recorded!** The summary could not be posted to the leaderboard channel."
	MsgUnavailable       = "⚠️ Score storage is unavailable right now. Please tell an admin."
	msgPersistFailed     = "❌ **The game could not be saved:** %v"
)

// Job is what workers read off the queue.
type Job = model.RecordJob

// Ledger records games.
type Ledger interface {
	Append(ctx context.Context, game model.GameRecord) error
}

// Publisher posts the public game summary.
type Publisher interface {
	PublishSummary(ctx context.Context, content string) error
}

// Notifier sends a follow-up to the interaction that finished the game.
type Notifier interface {
	FollowUp(ctx context.Context, ref ui.InteractionRef, reply ui.Reply) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Deps groups what a worker talks to.
type Deps struct {
	Ledger    Ledger
	Publisher Publisher
	Notifier  Notifier
}

// Worker processes jobs until its queue closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	deps     Deps
	name     string
	timeout  time.Duration
	location *time.Location

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, deps Deps, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		deps:     deps,
		name:     "worker",
		timeout:  defaultJobTimeout,
		location: time.UTC,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run consumes jobs until the queue is drained and closed, ctx is done,
// or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "job failed",
					logger.String("session_id", j.Game.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process appends the game, publishes its summary and confirms to the
// player. The append is attempted exactly once.
func (w *InMemoryWorker) process(parent context.Context, j Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	g := j.Game
	if err := w.deps.Ledger.Append(ctx, g); err != nil {
		if errors.Is(err, repository.ErrDuplicateGame) {
			w.logger.Warn(ctx, "game already recorded", logger.String("session_id", g.SessionID))
			return nil
		}
		metrics.RecordPersistenceError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "persist")
		w.notify(ctx, j, persistFailure(err))
		return fmt.Errorf("append game %s: %w", g.SessionID, err)
	}
	metrics.RecordGameRecorded()
	w.logger.Info(ctx, "game recorded",
		logger.String("session_id", g.SessionID),
		logger.Int("players", g.PlayerCount()),
		logger.String("logged_by", g.LoggedBy.Name),
	)

	reply := MsgRecorded
	if err := w.deps.Publisher.PublishSummary(ctx, summary.Game(g, w.location)); err != nil {
		metrics.RecordPublishError()
		metrics.RecordErrorByComponent("worker", "publish")
		w.logger.Error(ctx, "summary publish failed",
			logger.String("session_id", g.SessionID),
			logger.Error(err),
		)
		reply = MsgRecordedNoSummary
	}
	w.notify(ctx, j, reply)
	return nil
}

func (w *InMemoryWorker) notify(ctx context.Context, j Job, content string) { //nolint:gocritic // hugeParam: jobs travel by value
	if err := w.deps.Notifier.FollowUp(ctx, j.Origin, ui.Text(content)); err != nil {
		w.logger.Warn(ctx, "follow-up failed",
			logger.String("session_id", j.Game.SessionID),
			logger.Error(err),
		)
	}
}

func persistFailure(err error) string {
	if errors.Is(err, repository.ErrNotConfigured) {
		return MsgUnavailable
	}
	return fmt.Sprintf(msgPersistFailed, err)
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates count workers. Options apply to every worker.
func NewPool(count int, q Queue, deps Deps, opts ...Option) *Pool {
	if count < 1 {
		count = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, deps, wopts...)
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
