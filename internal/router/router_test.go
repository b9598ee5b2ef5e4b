package router_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/okian/catanbot/internal/adapters/repository"
	"github.com/okian/catanbot/internal/domain/dedupe"
	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/session"
	"github.com/okian/catanbot/internal/domain/stepid"
	"github.com/okian/catanbot/internal/domain/tease"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/internal/router"
	"github.com/okian/catanbot/internal/workflow"
	"github.com/okian/catanbot/pkg/clock"
	"github.com/okian/catanbot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const channel = "scoring"

var (
	owner = types.Player{ID: "u-owner", Name: "owner"}
	alice = types.Player{ID: "u-alice", Name: "alice"}
	bob   = types.Player{ID: "u-bob", Name: "bob"}
)

type call struct {
	op    string
	reply ui.Reply
}

type fakeResponder struct {
	mu         sync.Mutex
	calls      []call
	respondErr error
}

func (f *fakeResponder) record(op string, r ui.Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, reply: r})
}

func (f *fakeResponder) Respond(_ context.Context, r ui.Reply) error {
	f.record("respond", r)
	return f.respondErr
}

func (f *fakeResponder) Edit(_ context.Context, r ui.Reply) error {
	f.record("edit", r)
	return nil
}

func (f *fakeResponder) Delete(context.Context) error {
	f.record("delete", ui.Reply{})
	return nil
}

func (f *fakeResponder) FollowUp(_ context.Context, r ui.Reply) error {
	f.record("followup", r)
	return nil
}

func (f *fakeResponder) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.op
	}
	return out
}

func (f *fakeResponder) last() ui.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1].reply
}

type capQueue struct {
	mu   sync.Mutex
	jobs []model.RecordJob
}

func (q *capQueue) Enqueue(_ context.Context, j model.RecordJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, j)
	return true
}

type env struct {
	ctx    context.Context
	store  *repository.MemoryStore
	queue  *capQueue
	router *router.Router
	seq    int
}

func newEnv() *env {
	clk := clock.NewMock(time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC))
	sessions := session.NewStore(session.WithClock(clk))
	q := &capQueue{}
	store := repository.NewMemoryStore(repository.WithTeasingTemplates([]string{"{player} lost the longest road"}))
	flow := workflow.NewGameEntry(sessions, q, workflow.WithClock(clk), workflow.WithScoringChannel(channel))
	league := workflow.NewLeague(store, tease.NewSelector(store), 5, nil)
	return &env{
		ctx:    context.Background(),
		store:  store,
		queue:  q,
		router: router.New(flow, league, dedupe.NewInMemoryDeduper(), nil),
	}
}

func (e *env) nextID() string {
	e.seq++
	return "ix-" + strconv.Itoa(e.seq)
}

func (e *env) send(in router.Interaction) *fakeResponder {
	if in.ID == "" {
		in.ID = e.nextID()
	}
	if in.Actor.ID == "" {
		in.Actor = owner
	}
	r := &fakeResponder{}
	e.router.Handle(e.ctx, in, r)
	return r
}

func TestRouterEndToEnd(t *testing.T) {
	Convey("Given a router over the full workflow", t, func() {
		e := newEnv()

		Convey("When a game is entered step by step", func() {
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: router.CommandEndGame, ChannelID: channel})
			So(r.ops(), ShouldResemble, []string{"respond"})
			countID := r.last().Buttons[0].CustomID // 2 players

			r = e.send(router.Interaction{Kind: router.KindComponent, CustomID: countID})
			selectID := r.last().UserSelect.CustomID

			r = e.send(router.Interaction{Kind: router.KindComponent, CustomID: selectID, Values: []types.Player{alice, bob}})
			winnerID := r.last().Buttons[1].CustomID

			r = e.send(router.Interaction{Kind: router.KindComponent, CustomID: winnerID})
			So(r.last().Form, ShouldNotBeNil)
			scoreFormID := r.last().Form.CustomID

			r = e.send(router.Interaction{Kind: router.KindForm, CustomID: scoreFormID, Fields: map[string]string{stepid.FieldWinnerScore: "11"}})
			nextID := r.last().Buttons[0].CustomID

			r = e.send(router.Interaction{Kind: router.KindComponent, CustomID: nextID})
			restID := r.last().Form.CustomID

			r = e.send(router.Interaction{
				Kind:     router.KindForm,
				CustomID: restID,
				Fields:   map[string]string{stepid.ScoreField(0): "6"},
				Ref:      ui.InteractionRef{AppID: "app", Token: "final"},
			})

			Convey("Then the final step acknowledges and queues the game", func() {
				So(r.ops(), ShouldResemble, []string{"respond"})
				So(r.last().Content, ShouldEqual, workflow.MsgSaving)
				So(len(e.queue.jobs), ShouldEqual, 1)
				g := e.queue.jobs[0].Game
				So(g.Scores[0].Player, ShouldResemble, bob)
				So(g.Scores[0].Score, ShouldEqual, 11)
				So(e.queue.jobs[0].Origin.Token, ShouldEqual, "final")
			})

			Convey("Then resubmitting the final form explains the game is recorded", func() {
				r := e.send(router.Interaction{Kind: router.KindForm, CustomID: restID, Fields: map[string]string{stepid.ScoreField(0): "6"}})
				msg, _ := workflow.Describe(session.ErrSessionCompleted)
				So(r.last().Content, ShouldEqual, msg)
				So(r.last().Ephemeral, ShouldBeTrue)
				So(len(e.queue.jobs), ShouldEqual, 1)
			})
		})

		Convey("When a form identifier arrives as a button", func() {
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: router.CommandEndGame, ChannelID: channel})
			p, err := stepid.Decode(r.last().Buttons[0].CustomID)
			So(err, ShouldBeNil)
			forged := stepid.Encode(stepid.RemainingScores{SessionID: p.Session(), Winner: 0, WinnerScore: 10})
			r = e.send(router.Interaction{Kind: router.KindComponent, CustomID: forged})

			Convey("Then it is rejected as malformed", func() {
				msg, _ := workflow.Describe(stepid.ErrMalformed)
				So(r.last().Content, ShouldEqual, msg)
			})
		})

		Convey("When garbage custom IDs arrive", func() {
			r := e.send(router.Interaction{Kind: router.KindComponent, CustomID: "players_4"})

			Convey("Then the user sees the malformed message", func() {
				So(r.ops(), ShouldResemble, []string{"respond"})
				msg, _ := workflow.Describe(stepid.ErrMalformed)
				So(r.last().Content, ShouldEqual, msg)
			})
		})
	})
}

func TestRouterCommands(t *testing.T) {
	Convey("Given a router with one recorded game", t, func() {
		e := newEnv()
		So(e.store.Append(e.ctx, model.GameRecord{SessionID: "s1", Scores: []types.ScoreEntry{
			{Player: alice, Score: 10}, {Player: bob, Score: 4},
		}}), ShouldBeNil)

		Convey("Then /myrank sends a loading reply and edits it", func() {
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: router.CommandMyRank, Actor: alice})
			So(r.ops(), ShouldResemble, []string{"respond", "edit"})
			So(r.calls[0].reply.Content, ShouldEqual, workflow.MsgRankLoading)
			So(r.last().Embed, ShouldNotBeNil)
		})

		Convey("Then /ladder is public", func() {
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: router.CommandLadder})
			So(r.ops(), ShouldResemble, []string{"respond", "edit"})
			So(r.calls[0].reply.Ephemeral, ShouldBeFalse)
			So(r.last().Content, ShouldContainSubstring, "alice")
		})

		Convey("Then /roast replaces the placeholder with a public follow-up", func() {
			target := bob
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: router.CommandRoast, Actor: alice, Target: &target})
			So(r.ops(), ShouldResemble, []string{"respond", "delete", "followup"})
			So(r.last().Ephemeral, ShouldBeFalse)
			So(r.last().Content, ShouldStartWith, "<@u-bob> lost the longest road")
		})

		Convey("Then /roast on oneself is refused immediately", func() {
			target := alice
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: router.CommandRoast, Actor: alice, Target: &target})
			So(r.ops(), ShouldResemble, []string{"respond"})
			So(r.last().Content, ShouldEqual, workflow.MsgRoastSelf)
		})

		Convey("Then /endgame outside the scoring channel redirects", func() {
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: router.CommandEndGame, ChannelID: "general"})
			So(r.last().Content, ShouldContainSubstring, "<#scoring>")
		})

		Convey("Then unknown commands get the generic failure", func() {
			r := e.send(router.Interaction{Kind: router.KindCommand, Command: "dance"})
			So(r.last().Content, ShouldEqual, workflow.MsgSomethingWrong)
		})
	})
}

func TestRouterDelivery(t *testing.T) {
	Convey("Given a router", t, func() {
		e := newEnv()

		Convey("When the same interaction is delivered twice", func() {
			in := router.Interaction{ID: "dup", Kind: router.KindCommand, Command: router.CommandEndGame, ChannelID: channel}
			first := e.send(in)
			second := e.send(in)

			Convey("Then only the first is handled", func() {
				So(len(first.ops()), ShouldEqual, 1)
				So(len(second.ops()), ShouldEqual, 0)
			})
		})

		Convey("When the primary response fails", func() {
			r := &fakeResponder{respondErr: errors.New("unknown interaction")}
			e.router.Handle(e.ctx, router.Interaction{ID: "x", Kind: router.KindCommand, Command: router.CommandEndGame, ChannelID: channel, Actor: owner}, r)

			Convey("Then the fallback retries the primary path and does not panic", func() {
				So(r.ops(), ShouldResemble, []string{"respond", "respond"})
				So(r.last().Content, ShouldEqual, workflow.MsgSomethingWrong)
			})
		})

		Convey("When a handler panics after responding", func() {
			rt := router.New(nil, nil, nil, nil)
			r := &fakeResponder{}

			Convey("Then the generic failure is still sent", func() {
				So(func() {
					rt.Handle(e.ctx, router.Interaction{Kind: router.KindCommand, Command: router.CommandLadder}, r)
				}, ShouldNotPanic)
				So(r.ops(), ShouldResemble, []string{"respond", "followup"})
				So(r.last().Content, ShouldEqual, workflow.MsgSomethingWrong)
			})
		})
	})
}
