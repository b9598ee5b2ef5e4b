// Package workflow implements the guided game-result entry and the league
// commands built on top of the ranking backend.
package workflow

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/okian/catanbot/internal/domain/model"
	"github.com/okian/catanbot/internal/domain/scoring"
	"github.com/okian/catanbot/internal/domain/session"
	"github.com/okian/catanbot/internal/domain/stepid"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/pkg/clock"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

// Discord caps modal titles and input labels at 45 characters.
const maxTitleLen = 45

// Enqueuer accepts finished games for persistence without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.RecordJob) bool
}

// GameEntry drives the /endgame dialogue. Each step validates the session
// through the guard and answers with the next prompt.
type GameEntry struct {
	store          *session.Store
	guard          *session.Guard
	queue          Enqueuer
	clock          clock.Clock
	scoringChannel string
	logger         logger.Logger
}

// NewGameEntry creates the workflow over store, sending finished games to q.
func NewGameEntry(store *session.Store, q Enqueuer, opts ...Option) *GameEntry {
	g := &GameEntry{
		store: store,
		queue: q,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("workflow")
	}
	g.guard = session.NewGuard(store, g.logger.Named("guard"))
	return g
}

func (g *GameEntry) observe(step string, err error) {
	metrics.RecordStepOutcome(step, outcome(err))
}

// Start handles /endgame (S0) and asks for the player count.
func (g *GameEntry) Start(ctx context.Context, actor types.Player, channelID string) (reply ui.Reply, err error) {
	defer func() { g.observe("start", err) }()

	if g.scoringChannel != "" && channelID != g.scoringChannel {
		return ui.Reply{}, &WrongChannelError{ChannelID: g.scoringChannel}
	}
	id, err := g.store.Create(ctx, actor.ID)
	if err != nil {
		return ui.Reply{}, err
	}
	g.logger.Info(ctx, "game entry started",
		logger.String("session_id", id),
		logger.String("owner", actor.Name),
	)

	buttons := make([]ui.Button, 0, stepid.MaxPlayers-stepid.MinPlayers+1)
	for n := stepid.MinPlayers; n <= stepid.MaxPlayers; n++ {
		buttons = append(buttons, ui.Button{
			Label:    strconv.Itoa(n) + " Players",
			CustomID: stepid.Encode(stepid.ChooseCount{SessionID: id, Count: n}),
			Style:    ui.StylePrimary,
		})
	}
	return ui.Reply{Content: MsgStart, Ephemeral: true, Buttons: buttons}, nil
}

// ChooseCount handles a player-count button (S1).
func (g *GameEntry) ChooseCount(ctx context.Context, actor types.Player, p stepid.ChooseCount) (reply ui.Reply, err error) {
	defer func() { g.observe(stepid.StepChooseCount.String(), err) }()

	_, err = g.guard.Apply(ctx, p.SessionID, actor.ID, func(s *session.Session) error {
		if s.PlayersSet() {
			return ErrPlayersAlreadySet
		}
		s.DeclaredPlayerCount = p.Count
		return nil
	})
	if err != nil {
		return ui.Reply{}, err
	}

	return ui.Reply{
		Content:   fmt.Sprintf("🎲 **Select %d players** who played in this Catan game:", p.Count),
		Ephemeral: true,
		UserSelect: &ui.UserSelect{
			CustomID:    stepid.Encode(stepid.SelectPlayers{SessionID: p.SessionID, Count: p.Count}),
			Placeholder: fmt.Sprintf("Select %d players for this game", p.Count),
			Count:       p.Count,
		},
	}, nil
}

// SelectPlayers handles the user selection (S2). The selection becomes the
// session's fixed player list.
func (g *GameEntry) SelectPlayers(ctx context.Context, actor types.Player, p stepid.SelectPlayers, selected []types.Player) (reply ui.Reply, err error) {
	defer func() { g.observe(stepid.StepSelectPlayers.String(), err) }()

	s, err := g.guard.Apply(ctx, p.SessionID, actor.ID, func(s *session.Session) error {
		if s.PlayersSet() {
			return ErrPlayersAlreadySet
		}
		if s.DeclaredPlayerCount != p.Count {
			return ErrStaleForm
		}
		if len(selected) != p.Count {
			return &SelectionCountError{Want: p.Count, Got: len(selected)}
		}
		seen := make(map[string]struct{}, len(selected))
		for _, pl := range selected {
			if _, dup := seen[pl.ID]; dup {
				return ErrDuplicatePlayer
			}
			seen[pl.ID] = struct{}{}
		}
		s.Players = slices.Clone(selected)
		return nil
	})
	if err != nil {
		return ui.Reply{}, err
	}

	buttons := make([]ui.Button, len(s.Players))
	for i, pl := range s.Players {
		buttons[i] = ui.Button{
			Label:    "🏆 " + pl.Name,
			CustomID: stepid.Encode(stepid.ChooseWinner{SessionID: s.ID, Winner: i}),
			Style:    ui.StyleSuccess,
		}
	}
	return ui.Reply{
		Content:   fmt.Sprintf("🎲 **Players confirmed:** %s\n\n🏆 **Who won this game?**", names(s.Players, allIndexes(len(s.Players)))),
		Ephemeral: true,
		Buttons:   buttons,
	}, nil
}

// ChooseWinner handles a winner button (S3) and opens the winner score form.
func (g *GameEntry) ChooseWinner(ctx context.Context, actor types.Player, p stepid.ChooseWinner) (reply ui.Reply, err error) {
	defer func() { g.observe(stepid.StepChooseWinner.String(), err) }()

	s, err := g.guard.Validate(ctx, p.SessionID, actor.ID)
	if err != nil {
		return ui.Reply{}, err
	}
	if s.HasWinner {
		return ui.Reply{}, ErrWinnerAlreadySet
	}
	if !s.PlayersSet() || !s.ValidIndex(p.Winner) {
		return ui.Reply{}, ErrStaleForm
	}

	winner := s.Players[p.Winner].Name
	return ui.Reply{Form: &ui.Form{
		CustomID: stepid.Encode(stepid.WinnerScore{SessionID: s.ID, Winner: p.Winner}),
		Title:    truncate("🏆 " + winner + " Won!"),
		Fields: []ui.Field{{
			CustomID:    stepid.FieldWinnerScore,
			Label:       truncate(winner + "'s winning score"),
			Placeholder: "12",
			MaxLength:   2,
		}},
	}}, nil
}

// WinnerScore handles the winner score form (S4). An invalid score leaves
// the session untouched so the form can be submitted again.
func (g *GameEntry) WinnerScore(ctx context.Context, actor types.Player, p stepid.WinnerScore, fields map[string]string) (reply ui.Reply, err error) {
	defer func() { g.observe(stepid.StepWinnerScore.String(), err) }()

	s, err := g.guard.Apply(ctx, p.SessionID, actor.ID, func(s *session.Session) error {
		if s.HasWinner {
			return ErrWinnerAlreadySet
		}
		if !s.PlayersSet() || !s.ValidIndex(p.Winner) {
			return ErrStaleForm
		}
		raw, ok := fields[stepid.FieldWinnerScore]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingField, stepid.FieldWinnerScore)
		}
		score, err := scoring.ParseScore(raw)
		if err != nil {
			return err
		}
		s.HasWinner = true
		s.Winner = p.Winner
		s.WinnerScore = score
		return nil
	})
	if err != nil {
		return ui.Reply{}, err
	}

	return ui.Reply{
		Content: fmt.Sprintf("🏆 **%s** won with **%d points!**\n\nNow let's collect scores for: %s",
			s.Players[s.Winner].Name, s.WinnerScore, names(s.Players, s.Remaining(s.Winner))),
		Ephemeral: true,
		Buttons: []ui.Button{{
			Label:    "📝 Enter Other Scores",
			CustomID: stepid.Encode(stepid.ContinueScores{SessionID: s.ID, Winner: s.Winner, WinnerScore: s.WinnerScore}),
			Style:    ui.StylePrimary,
		}},
	}, nil
}

// ContinueScores handles the confirmation button (S5) and opens the form for
// every other player.
func (g *GameEntry) ContinueScores(ctx context.Context, actor types.Player, p stepid.ContinueScores) (reply ui.Reply, err error) {
	defer func() { g.observe(stepid.StepContinueScores.String(), err) }()

	s, err := g.guard.Validate(ctx, p.SessionID, actor.ID)
	if err != nil {
		return ui.Reply{}, err
	}
	if err := matchesWinner(s, p.Winner, p.WinnerScore); err != nil {
		return ui.Reply{}, err
	}

	remaining := s.Remaining(s.Winner)
	form := &ui.Form{
		CustomID: stepid.Encode(stepid.RemainingScores{SessionID: s.ID, Winner: s.Winner, WinnerScore: s.WinnerScore}),
		Title:    "Enter Remaining Scores",
		Fields:   make([]ui.Field, 0, len(remaining)),
	}
	for _, i := range remaining {
		form.Fields = append(form.Fields, ui.Field{
			CustomID:    stepid.ScoreField(i),
			Label:       truncate(s.Players[i].Name + "'s score"),
			Placeholder: "8",
			MaxLength:   2,
		})
	}
	return ui.Reply{Form: form}, nil
}

// RemainingScores handles the final form (S6). On success the session is
// completed, the game is queued for persistence and the user gets an
// immediate acknowledgement; the final confirmation arrives later through
// ref. Completed stays set even when queueing fails.
func (g *GameEntry) RemainingScores(ctx context.Context, actor types.Player, p stepid.RemainingScores, fields map[string]string, ref ui.InteractionRef) (reply ui.Reply, err error) {
	defer func() { g.observe(stepid.StepRemainingScores.String(), err) }()

	now := g.clock.Now()
	var game model.GameRecord
	s, err := g.guard.Apply(ctx, p.SessionID, actor.ID, func(s *session.Session) error {
		if err := matchesWinner(*s, p.Winner, p.WinnerScore); err != nil {
			return err
		}
		if err := scoring.ValidateScore(s.WinnerScore); err != nil {
			return err
		}

		entries := []types.ScoreEntry{{Player: s.Players[s.Winner], Score: s.WinnerScore}}
		for _, i := range s.Remaining(s.Winner) {
			raw, ok := fields[stepid.ScoreField(i)]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingField, stepid.ScoreField(i))
			}
			score, err := scoring.ParseScore(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Players[i].Name, err)
			}
			entries = append(entries, types.ScoreEntry{Player: s.Players[i], Score: score})
		}

		s.Completed = true
		game = model.GameRecord{
			ID:          now.UnixMilli(),
			SessionID:   s.ID,
			PlayedAt:    now,
			LoggedBy:    actor,
			WinnerScore: s.WinnerScore,
			Scores:      scoring.Rank(entries),
		}
		return nil
	})
	if err != nil {
		return ui.Reply{}, err
	}

	job := model.RecordJob{Game: game, Origin: ref, EnqueuedAt: now}
	if !g.queue.Enqueue(ctx, job) {
		metrics.RecordPersistenceError()
		g.logger.Error(ctx, "game completed but could not be queued",
			logger.String("session_id", s.ID),
		)
		return ui.Reply{}, ErrQueueFull
	}
	g.logger.Info(ctx, "game completed",
		logger.String("session_id", s.ID),
		logger.Int("players", game.PlayerCount()),
	)
	return ui.Text(MsgSaving), nil
}

// matchesWinner checks the winner echoed by a control against the one the
// session recorded at S4.
func matchesWinner(s session.Session, winner, score int) error {
	if !s.HasWinner || !s.ValidIndex(s.Winner) || s.Winner != winner || s.WinnerScore != score {
		return ErrStaleForm
	}
	return nil
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func names(players []types.Player, idx []int) string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = players[j].Name
	}
	return strings.Join(out, ", ")
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxTitleLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxTitleLen-1]) + "…"
}
