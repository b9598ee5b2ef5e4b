package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/catanbot/internal/adapters/mq/queue"
	"github.com/okian/catanbot/internal/adapters/mq/worker"
	"github.com/okian/catanbot/internal/adapters/repository"
	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
	logging "github.com/okian/catanbot/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan worker.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan worker.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan worker.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockLedger struct {
	mu    sync.Mutex
	games []model.GameRecord
	err   error
}

func (m *mockLedger) Append(_ context.Context, g model.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.games = append(m.games, g)
	return nil
}

func (m *mockLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

type mockPublisher struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (m *mockPublisher) PublishSummary(_ context.Context, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, content)
	return nil
}

type followUp struct {
	ref   ui.InteractionRef
	reply ui.Reply
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []followUp
}

func (m *mockNotifier) FollowUp(_ context.Context, ref ui.InteractionRef, reply ui.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, followUp{ref: ref, reply: reply})
	return nil
}

func (m *mockNotifier) last() (followUp, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return followUp{}, 0
	}
	return m.sent[len(m.sent)-1], len(m.sent)
}

func testJob(session string) worker.Job {
	return worker.Job{
		Game: model.GameRecord{
			ID:          1,
			SessionID:   session,
			PlayedAt:    time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC),
			LoggedBy:    types.Player{ID: "u1", Name: "alice"},
			WinnerScore: 10,
			Scores: []types.ScoreEntry{
				{Player: types.Player{ID: "u1", Name: "alice"}, Score: 10},
				{Player: types.Player{ID: "u2", Name: "bob"}, Score: 7},
			},
		},
		Origin: ui.InteractionRef{AppID: "app", Token: "tok-" + session},
	}
}

type fixture struct {
	queue     *mockQueue
	ledger    *mockLedger
	publisher *mockPublisher
	notifier  *mockNotifier
}

func newFixture() *fixture {
	return &fixture{
		queue:     newMockQueue(),
		ledger:    &mockLedger{},
		publisher: &mockPublisher{},
		notifier:  &mockNotifier{},
	}
}

func (f *fixture) deps() worker.Deps {
	return worker.Deps{Ledger: f.ledger, Publisher: f.publisher, Notifier: f.notifier}
}

// runOne runs a worker over a single job and waits for it to drain.
func (f *fixture) runOne(j worker.Job) {
	w := worker.NewInMemoryWorker(f.queue, f.deps(), worker.WithName("test"))
	f.queue.jobs <- j
	_ = f.queue.Close()
	w.Run(context.Background())
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker", t, func() {
		_ = logging.Init()
		f := newFixture()

		convey.Convey("When the job succeeds", func() {
			f.runOne(testJob("s1"))

			convey.Convey("Then the game is stored, published and confirmed", func() {
				convey.So(f.ledger.count(), convey.ShouldEqual, 1)
				convey.So(len(f.publisher.messages), convey.ShouldEqual, 1)
				convey.So(f.publisher.messages[0], convey.ShouldContainSubstring, "Congratulations alice!")
				msg, n := f.notifier.last()
				convey.So(n, convey.ShouldEqual, 1)
				convey.So(msg.ref.Token, convey.ShouldEqual, "tok-s1")
				convey.So(msg.reply.Content, convey.ShouldEqual, worker.MsgRecorded)
				convey.So(msg.reply.Ephemeral, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the append fails", func() {
			f.ledger.err = fmt.Errorf("%w: quota exceeded", repository.ErrPersist)
			f.runOne(testJob("s1"))

			convey.Convey("Then nothing is published and the user sees the cause", func() {
				convey.So(len(f.publisher.messages), convey.ShouldEqual, 0)
				msg, n := f.notifier.last()
				convey.So(n, convey.ShouldEqual, 1)
				convey.So(msg.reply.Content, convey.ShouldContainSubstring, "quota exceeded")
			})
		})

		convey.Convey("When the backend is not configured", func() {
			f.ledger.err = repository.ErrNotConfigured
			f.runOne(testJob("s1"))

			convey.Convey("Then the user gets the generic unavailable message", func() {
				msg, _ := f.notifier.last()
				convey.So(msg.reply.Content, convey.ShouldEqual, worker.MsgUnavailable)
			})
		})

		convey.Convey("When the game was already recorded", func() {
			f.ledger.err = fmt.Errorf("%w: session s1", repository.ErrDuplicateGame)
			f.runOne(testJob("s1"))

			convey.Convey("Then nothing else happens", func() {
				convey.So(len(f.publisher.messages), convey.ShouldEqual, 0)
				_, n := f.notifier.last()
				convey.So(n, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When publishing fails", func() {
			f.publisher.err = errors.New("missing access")
			f.runOne(testJob("s1"))

			convey.Convey("Then the game stays recorded and the user is told", func() {
				convey.So(f.ledger.count(), convey.ShouldEqual, 1)
				msg, _ := f.notifier.last()
				convey.So(msg.reply.Content, convey.ShouldEqual, worker.MsgRecordedNoSummary)
			})
		})

		convey.Convey("When shut down while idle", func() {
			w := worker.NewInMemoryWorker(f.queue, f.deps())
			go w.Run(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then Shutdown returns promptly", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()
		f := newFixture()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		pool := worker.NewPool(3, q, f.deps(), worker.WithJobTimeout(time.Second))
		pool.Start(context.Background())

		convey.Convey("When jobs are enqueued and the pool shuts down", func() {
			for i := 0; i < 20; i++ {
				convey.So(q.Enqueue(context.Background(), testJob(fmt.Sprintf("s%d", i))), convey.ShouldBeTrue)
			}
			err := pool.Shutdown(context.Background())

			convey.Convey("Then every queued job is processed first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.ledger.count(), convey.ShouldEqual, 20)
				_, n := f.notifier.last()
				convey.So(n, convey.ShouldEqual, 20)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a zero worker count", t, func() {
		_ = logging.Init()
		f := newFixture()
		pool := worker.NewPool(0, f.queue, f.deps())
		pool.Start(context.Background())

		convey.Convey("Then the pool still drains on shutdown", func() {
			f.queue.jobs <- testJob("s1")
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(f.ledger.count(), convey.ShouldEqual, 1)
		})
	})
}
