package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/catanbot/internal/domain/session"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/pkg/clock"
	"github.com/okian/catanbot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var t0 = time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)

func TestStore(t *testing.T) {
	Convey("Given a store with a mock clock", t, func() {
		ctx := context.Background()
		clk := clock.NewMock(t0)
		store := session.NewStore(session.WithClock(clk), session.WithTTL(30*time.Minute))

		Convey("When a session is created", func() {
			id, err := store.Create(ctx, "owner-1")
			So(err, ShouldBeNil)

			Convey("Then it can be read back empty and open", func() {
				s, err := store.Get(ctx, id)
				So(err, ShouldBeNil)
				So(s.ID, ShouldEqual, id)
				So(s.OwnerID, ShouldEqual, "owner-1")
				So(s.CreatedAt, ShouldEqual, t0)
				So(s.Completed, ShouldBeFalse)
				So(s.PlayersSet(), ShouldBeFalse)
			})

			Convey("Then a copy returned by Get does not alias the store", func() {
				_, err := store.Update(ctx, id, func(s *session.Session) error {
					s.Players = []types.Player{{ID: "a"}, {ID: "b"}}
					return nil
				})
				So(err, ShouldBeNil)

				s, _ := store.Get(ctx, id)
				s.Players[0].ID = "mutated"

				again, _ := store.Get(ctx, id)
				So(again.Players[0].ID, ShouldEqual, "a")
			})

			Convey("Then a failing update writes nothing", func() {
				boom := errors.New("boom")
				_, err := store.Update(ctx, id, func(s *session.Session) error {
					s.DeclaredPlayerCount = 4
					return boom
				})
				So(errors.Is(err, boom), ShouldBeTrue)

				s, _ := store.Get(ctx, id)
				So(s.DeclaredPlayerCount, ShouldEqual, 0)
			})

			Convey("Then completion cannot be reverted", func() {
				_, err := store.Update(ctx, id, func(s *session.Session) error {
					s.Completed = true
					return nil
				})
				So(err, ShouldBeNil)

				s, err := store.Update(ctx, id, func(s *session.Session) error {
					s.Completed = false
					return nil
				})
				So(err, ShouldBeNil)
				So(s.Completed, ShouldBeTrue)
			})

			Convey("Then identity fields cannot be rewritten", func() {
				s, err := store.Update(ctx, id, func(s *session.Session) error {
					s.OwnerID = "intruder"
					return nil
				})
				So(err, ShouldBeNil)
				So(s.OwnerID, ShouldEqual, "owner-1")
			})

			Convey("And 29 minutes pass", func() {
				clk.Advance(29 * time.Minute)

				Convey("Then it is still reachable", func() {
					_, err := store.Get(ctx, id)
					So(err, ShouldBeNil)
				})
			})

			Convey("And the TTL elapses without a sweep", func() {
				clk.Advance(30 * time.Minute)

				Convey("Then it is logically expired", func() {
					_, err := store.Get(ctx, id)
					So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)

					_, err = store.Update(ctx, id, func(*session.Session) error { return nil })
					So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)
					So(store.Len(), ShouldEqual, 1)
				})

				Convey("Then a sweep removes it", func() {
					So(store.Sweep(clk.Now()), ShouldEqual, 1)
					So(store.Len(), ShouldEqual, 0)
				})
			})
		})

		Convey("When sessions of different ages are swept", func() {
			oldID, _ := store.Create(ctx, "owner-1")
			clk.Advance(20 * time.Minute)
			newID, _ := store.Create(ctx, "owner-2")
			clk.Advance(15 * time.Minute)

			removed := store.Sweep(clk.Now())

			Convey("Then only the stale one is removed", func() {
				So(removed, ShouldEqual, 1)
				_, err := store.Get(ctx, oldID)
				So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)
				_, err = store.Get(ctx, newID)
				So(err, ShouldBeNil)
			})
		})

		Convey("When an unknown session is requested", func() {
			_, err := store.Get(ctx, "nope")

			Convey("Then it is not found", func() {
				So(errors.Is(err, session.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestStoreIDs(t *testing.T) {
	Convey("Given an ID generator that repeats itself", t, func() {
		ctx := context.Background()
		store := session.NewStore(session.WithIDGenerator(func() string { return "same" }))

		Convey("When two sessions are created", func() {
			_, err1 := store.Create(ctx, "a")
			_, err2 := store.Create(ctx, "b")

			Convey("Then the second creation reports the collision", func() {
				So(err1, ShouldBeNil)
				So(errors.Is(err2, session.ErrIDCollision), ShouldBeTrue)
			})
		})
	})

	Convey("Given the default generator under concurrent creation", t, func() {
		ctx := context.Background()
		store := session.NewStore()
		var wg sync.WaitGroup
		var mu sync.Mutex
		ids := map[string]bool{}

		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := store.Create(ctx, fmt.Sprintf("owner-%d", i))
				if err == nil {
					mu.Lock()
					ids[id] = true
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Then every session gets a unique ID", func() {
			So(len(ids), ShouldEqual, 100)
			So(store.Len(), ShouldEqual, 100)
		})
	})
}

func TestRunSweeper(t *testing.T) {
	Convey("Given a running sweeper with a short TTL", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := session.NewStore(session.WithTTL(10 * time.Millisecond))
		_, err := store.Create(ctx, "owner")
		So(err, ShouldBeNil)

		go store.RunSweeper(ctx, 5*time.Millisecond)

		Convey("Then the session is eventually removed", func() {
			deadline := time.Now().Add(2 * time.Second)
			for store.Len() > 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(store.Len(), ShouldEqual, 0)
		})
	})
}
