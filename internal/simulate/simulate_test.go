package simulate

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/catanbot/internal/domain/stepid"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		rng := rand.New(rand.NewPCG(1, 2))
		pool := NewPool(8)
		games := Generate(rng, pool, 200)

		Convey("Then every game is a valid Catan result", func() {
			So(len(games), ShouldEqual, 200)
			for _, g := range games {
				So(len(g.Players), ShouldBeBetweenOrEqual, stepid.MinPlayers, stepid.MaxPlayers)
				So(len(g.Scores), ShouldEqual, len(g.Players))

				seen := map[string]bool{}
				for i, p := range g.Players {
					So(seen[p.ID], ShouldBeFalse)
					seen[p.ID] = true
					if i != g.Winner {
						So(g.Scores[i], ShouldBeLessThan, g.Scores[g.Winner])
					}
				}
				So(seen[g.Owner.ID], ShouldBeTrue)
			}
		})
	})

	Convey("Given a pool smaller than a full table", t, func() {
		games := Generate(rand.New(rand.NewPCG(3, 4)), NewPool(3), 50)

		Convey("Then no game seats more players than exist", func() {
			for _, g := range games {
				So(len(g.Players), ShouldBeLessThanOrEqualTo, 3)
			}
		})
	})
}

func TestExpected(t *testing.T) {
	a := types.Player{ID: "1", Name: "alice"}
	b := types.Player{ID: "2", Name: "bob"}
	c := types.Player{ID: "3", Name: "carol"}

	Convey("Given two games", t, func() {
		games := []Game{
			{Players: []types.Player{a, b, c}, Scores: []int{10, 7, 4}, Winner: 0},
			{Players: []types.Player{b, c}, Scores: []int{3, 10}, Winner: 1},
		}

		Convey("Then totals are ranked densely with ties sharing a rank", func() {
			So(Expected(games), ShouldResemble, []types.RankedPlayer{
				{Rank: 1, Player: "carol", Points: 14, Games: 2},
				{Rank: 2, Player: "alice", Points: 10, Games: 1},
				{Rank: 2, Player: "bob", Points: 10, Games: 2},
			})
		})
	})

	Convey("Given differing tables", t, func() {
		want := []types.RankedPlayer{{Rank: 1, Player: "alice", Points: 10, Games: 1}}

		Convey("Then Verify reports the mismatch", func() {
			So(Verify(want, want), ShouldBeNil)
			So(errors.Is(Verify(want, nil), ErrMismatch), ShouldBeTrue)
			got := []types.RankedPlayer{{Rank: 1, Player: "alice", Points: 9, Games: 1}}
			So(errors.Is(Verify(want, got), ErrMismatch), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a small simulation", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When games are stored in memory", func() {
			stats, err := Run(ctx, &Config{Games: 40, Players: 7, Workers: 4, Seed: 42, Storage: "memory"})

			Convey("Then every game is recorded and the table matches", func() {
				So(err, ShouldBeNil)
				So(stats.GamesRejected, ShouldEqual, 0)
				So(stats.GamesRecorded, ShouldEqual, 40)
				So(stats.SummariesPublished, ShouldEqual, 40)
				So(stats.PlayersRanked, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When games are stored in SQLite", func() {
			path := filepath.Join(t.TempDir(), "sim.db")
			stats, err := Run(ctx, &Config{Games: 15, Players: 6, Workers: 2, Seed: 7, Storage: "sqlite", SQLitePath: path})

			Convey("Then the SQL ranking matches the expected table", func() {
				So(err, ShouldBeNil)
				So(stats.GamesRecorded, ShouldEqual, 15)
			})
		})

		Convey("When the storage is unknown", func() {
			_, err := Run(ctx, &Config{Games: 1, Players: 2, Storage: "paper"})

			Convey("Then the run fails before playing", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
