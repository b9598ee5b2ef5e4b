package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/catanbot/internal/adapters/http/api"
	repository "github.com/okian/catanbot/internal/adapters/repository"
	"github.com/okian/catanbot/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockLeaderboard struct {
	topN    []types.RankedPlayer
	rank    types.RankedPlayer
	rankErr error
	topNErr error
	lastN   int
	lastArg string
}

func (m *mockLeaderboard) TopN(_ context.Context, n int) ([]types.RankedPlayer, error) {
	m.lastN = n
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockLeaderboard) Rank(_ context.Context, player string) (types.RankedPlayer, error) {
	m.lastArg = player
	if m.rankErr != nil {
		return types.RankedPlayer{}, m.rankErr
	}
	return m.rank, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		lb := &mockLeaderboard{rank: types.RankedPlayer{Rank: 1, Player: "alice", Points: 21, Games: 2}}
		server := api.NewServer(lb, &mockStatsProvider{stats: map[string]any{"started": true}}, 100)
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("Then the root answers the keep-alive probe", func() {
			w := serve(mux, http.MethodGet, "/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, api.RootMessage)
		})

		Convey("Then health reports ok", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then metrics are exposed in Prometheus format", func() {
			w := serve(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "catanbot_")
		})

		Convey("Then stats are accessible", func() {
			So(serve(mux, http.MethodGet, "/stats").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then leaderboard is accessible", func() {
			So(serve(mux, http.MethodGet, "/leaderboard?limit=10").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then rank takes the player from the path", func() {
			w := serve(mux, http.MethodGet, "/rank/alice")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(lb.lastArg, ShouldEqual, "alice")
		})

		Convey("Then unknown paths are not found", func() {
			So(serve(mux, http.MethodGet, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then writes are not allowed", func() {
			So(serve(mux, http.MethodPost, "/leaderboard").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestLeaderboardHandler_HandleGetLeaderboard(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		mockLB := &mockLeaderboard{
			topN: []types.RankedPlayer{
				{Rank: 1, Player: "alice", Points: 30, Games: 3},
				{Rank: 2, Player: "bob", Points: 25, Games: 3},
				{Rank: 2, Player: "carol", Points: 25, Games: 2},
			},
		}
		handler := api.NewLeaderboardHandler(mockLB, 50)

		Convey("When requesting top N entries", func() {
			req := httptest.NewRequest("GET", "/leaderboard?limit=2", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return the top N entries", func() {
				handler.HandleGetLeaderboard(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response []types.RankedPlayer
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(len(response), ShouldEqual, 2)
				So(response[0].Player, ShouldEqual, "alice")
				So(response[1].Points, ShouldEqual, 25)
			})
		})

		Convey("When no limit is specified", func() {
			req := httptest.NewRequest("GET", "/leaderboard", nil)
			w := httptest.NewRecorder()
			handler.HandleGetLeaderboard(w, req)

			Convey("Then the default limit is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(mockLB.lastN, ShouldEqual, 10)
			})
		})

		Convey("When the limit is not a positive number", func() {
			for _, limit := range []string{"0", "-3", "ten"} {
				req := httptest.NewRequest("GET", "/leaderboard?limit="+limit, nil)
				w := httptest.NewRecorder()
				handler.HandleGetLeaderboard(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the limit exceeds the maximum", func() {
			req := httptest.NewRequest("GET", "/leaderboard?limit=51", nil)
			w := httptest.NewRecorder()
			handler.HandleGetLeaderboard(w, req)

			Convey("Then it should return 400 limit_exceeded", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
			})
		})

		Convey("When the storage is not configured", func() {
			mockLB.topNErr = fmt.Errorf("read: %w", repository.ErrNotConfigured)
			req := httptest.NewRequest("GET", "/leaderboard?limit=10", nil)
			w := httptest.NewRecorder()
			handler.HandleGetLeaderboard(w, req)

			Convey("Then it should return service unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When leaderboard returns an error", func() {
			mockLB.topNErr = fmt.Errorf("database error")
			req := httptest.NewRequest("GET", "/leaderboard?limit=10", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleGetLeaderboard(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestRankHandler_HandleGetRank(t *testing.T) {
	Convey("Given a rank handler", t, func() {
		mockLB := &mockLeaderboard{
			rank: types.RankedPlayer{Rank: 5, Player: "dave", Points: 17, Games: 2},
		}
		handler := api.NewRankHandler(mockLB)
		get := func(player string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("GET", "/rank/x", nil)
			req.SetPathValue("player", player)
			w := httptest.NewRecorder()
			handler.HandleGetRank(w, req)
			return w
		}

		Convey("When requesting rank for an existing player", func() {
			w := get("dave")

			Convey("Then it should return the rank information", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

				var response types.RankedPlayer
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Player, ShouldEqual, "dave")
				So(response.Rank, ShouldEqual, 5)
				So(response.Points, ShouldEqual, 17.0)
			})
		})

		Convey("When requesting rank for an unknown player", func() {
			mockLB.rankErr = repository.ErrNotFound
			w := get("nobody")

			Convey("Then it should return not found status", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "not_found")
			})
		})

		Convey("When the player is blank", func() {
			w := get("  ")

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When leaderboard returns other error", func() {
			mockLB.rankErr = fmt.Errorf("database error")
			w := get("dave")

			Convey("Then it should return internal server error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]any{
				"queueLength":    3,
				"activeSessions": 2,
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]any
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["queueLength"], ShouldEqual, 3)
				So(response["activeSessions"], ShouldEqual, 2)
			})
		})
	})
}
