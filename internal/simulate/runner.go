package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	workerpool "github.com/okian/catanbot/internal/adapters/mq/worker"
	service "github.com/okian/catanbot/internal/app"
	"github.com/okian/catanbot/internal/config"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/pkg/logger"
)

const (
	channel         = "simulated-scoring"
	defaultWait     = 30 * time.Second
	pollInterval    = 50 * time.Millisecond
	percentMultiple = 100
)

// Run plays cfg.Games random games through a freshly started service and
// verifies the league table once every game is persisted.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Info(ctx, "starting simulation",
		logger.Int("games", cfg.Games),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.String("storage", cfg.Storage),
		logger.Any("seed", seed),
	)

	appCfg := config.New()
	appCfg.ScoringChannelID = channel
	appCfg.QueueSize = max(appCfg.QueueSize, cfg.Games)
	if cfg.Storage != "" {
		appCfg.Storage = cfg.Storage
	}
	if cfg.SQLitePath != "" {
		appCfg.SQLitePath = cfg.SQLitePath
	}
	if err := appCfg.Validate(); err != nil {
		return nil, err
	}

	// Open storage up front so a bad backend fails the run instead of
	// degrading to the unavailable store.
	store, err := service.OpenStore(ctx, appCfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	out := &outputs{}
	svc := service.New(appCfg,
		service.WithStore(store),
		service.WithPublisher(out),
		service.WithNotifier(out),
		service.WithLogger(log.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := svc.Stop(context.WithoutCancel(ctx)); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	rng := rand.New(rand.NewPCG(seed, seed>>1|1)) //nolint:gosec // reproducible test data
	pool := NewPool(cfg.Players)
	games := Generate(rng, pool, cfg.Games)
	stats.GamesGenerated = len(games)

	accepted := play(ctx, cfg, NewDriver(svc, channel), games, stats, log)

	wait := cfg.Wait
	if wait <= 0 {
		wait = defaultWait
	}
	if err := waitPersisted(ctx, out, len(accepted), wait); err != nil {
		return stats, err
	}
	stats.GamesRecorded = int(out.recorded.Load())
	stats.GamesFailed = int(out.failed.Load())
	stats.SummariesPublished = int(out.summaries.Load())

	table, err := svc.TopN(ctx, len(pool))
	if err != nil {
		return stats, fmt.Errorf("read rankings: %w", err)
	}
	stats.PlayersRanked = len(table)
	if err := Verify(Expected(accepted), table); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// play runs the games on cfg.Workers goroutines and returns the ones the
// bot acknowledged.
func play(ctx context.Context, cfg *Config, d *Driver, games []Game, stats *Stats, log logger.Logger) []Game {
	workers := max(1, min(cfg.Workers, len(games)))
	ok := make([]bool, len(games))
	var rejected atomic.Int64

	idx := make(chan int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				if err := d.Play(ctx, games[i]); err != nil {
					rejected.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "game rejected", logger.Int("game", i), logger.Error(err))
					}
					continue
				}
				ok[i] = true
			}
		}()
	}

	go func() {
		defer close(idx)
		for i := range games {
			select {
			case <-ctx.Done():
				return
			case idx <- i:
			}
		}
	}()
	wg.Wait()

	accepted := make([]Game, 0, len(games))
	for i, g := range games {
		if ok[i] {
			accepted = append(accepted, g)
		}
	}
	stats.GamesSubmitted = len(games)
	stats.GamesRejected = int(rejected.Load())
	return accepted
}

// waitPersisted polls until every accepted game reported an outcome.
func waitPersisted(ctx context.Context, out *outputs, want int, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	b := backoff.WithContext(backoff.NewConstantBackOff(pollInterval), ctx)
	err := backoff.Retry(func() error {
		if got := int(out.recorded.Load() + out.failed.Load()); got < want {
			return fmt.Errorf("%w: %d of %d", ErrPending, want-got, want)
		}
		return nil
	}, b)
	if err != nil {
		return fmt.Errorf("wait for persistence: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, gamesPerSecond float64
	if stats.GamesSubmitted > 0 {
		successRate = float64(stats.GamesRecorded) / float64(stats.GamesSubmitted) * percentMultiple
	}
	if stats.Duration > 0 {
		gamesPerSecond = float64(stats.GamesSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("gamesGenerated", stats.GamesGenerated),
		logger.Int("gamesSubmitted", stats.GamesSubmitted),
		logger.Int("gamesRejected", stats.GamesRejected),
		logger.Int("gamesRecorded", stats.GamesRecorded),
		logger.Int("gamesFailed", stats.GamesFailed),
		logger.Int("summariesPublished", stats.SummariesPublished),
		logger.Int("playersRanked", stats.PlayersRanked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("gamesPerSecond", gamesPerSecond),
	)
}

// outputs counts what the worker pool sends back to the chat.
type outputs struct {
	summaries atomic.Int64
	recorded  atomic.Int64
	failed    atomic.Int64
}

func (o *outputs) PublishSummary(context.Context, string) error {
	o.summaries.Add(1)
	return nil
}

func (o *outputs) FollowUp(_ context.Context, _ ui.InteractionRef, reply ui.Reply) error {
	if reply.Content == workerpool.MsgRecorded {
		o.recorded.Add(1)
	} else {
		o.failed.Add(1)
	}
	return nil
}
