// Package router dispatches platform interactions to the workflow and the
// league commands, and guarantees every interaction gets an answer.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/okian/catanbot/internal/domain/dedupe"
	"github.com/okian/catanbot/internal/domain/stepid"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/internal/workflow"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

// Slash command names.
const (
	CommandEndGame = "endgame"
	CommandMyRank  = "myrank"
	CommandLadder  = "ladder"
	CommandRoast   = "roast"
)

// Kind is the interaction category.
type Kind int

const (
	KindCommand Kind = iota
	KindComponent
	KindForm
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindComponent:
		return "component"
	case KindForm:
		return "form"
	default:
		return "unknown"
	}
}

// Interaction is a platform-neutral user action.
type Interaction struct {
	ID        string
	Kind      Kind
	Command   string
	CustomID  string
	ChannelID string
	Actor     types.Player
	// Values holds the users picked in a user select.
	Values []types.Player
	// Fields holds submitted form values by field ID.
	Fields map[string]string
	// Target is the user option of /roast.
	Target *types.Player
	Ref    ui.InteractionRef
}

// Responder answers one interaction.
type Responder interface {
	// Respond sends the primary response. It may be called once.
	Respond(ctx context.Context, reply ui.Reply) error
	// Edit replaces the primary response.
	Edit(ctx context.Context, reply ui.Reply) error
	// Delete removes the primary response.
	Delete(ctx context.Context) error
	// FollowUp sends an extra message after the primary response.
	FollowUp(ctx context.Context, reply ui.Reply) error
}

// Router routes interactions.
type Router struct {
	flow   *workflow.GameEntry
	league *workflow.League
	dedupe dedupe.Deduper
	logger logger.Logger
}

// New creates a Router. A nil deduper disables replay filtering.
func New(flow *workflow.GameEntry, league *workflow.League, d dedupe.Deduper, l logger.Logger) *Router {
	if l == nil {
		l = logger.Get().Named("router")
	}
	return &Router{flow: flow, league: league, dedupe: d, logger: l}
}

// Handle processes in and answers through resp. It never panics.
func (r *Router) Handle(ctx context.Context, in Interaction, resp Responder) {
	metrics.RecordInteraction(in.Kind.String())
	if r.dedupe != nil && in.ID != "" && r.dedupe.SeenAndRecord(ctx, in.ID) {
		metrics.RecordInteractionDuplicate()
		r.logger.Debug(ctx, "duplicate interaction dropped", logger.String("interaction_id", in.ID))
		return
	}

	t := &tracked{Responder: resp}
	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordInteractionPanic()
			r.logger.Error(ctx, "interaction handler panicked",
				logger.String("interaction_id", in.ID),
				logger.Any("panic", rec),
				logger.String("stack", string(debug.Stack())),
			)
			r.fail(ctx, in, t, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := r.dispatch(ctx, in, t); err != nil {
		r.fail(ctx, in, t, err)
	}
}

func (r *Router) dispatch(ctx context.Context, in Interaction, t *tracked) error {
	switch in.Kind {
	case KindCommand:
		return r.command(ctx, in, t)
	case KindComponent, KindForm:
		reply, err := r.step(ctx, in)
		if err != nil {
			return err
		}
		return t.Respond(ctx, reply)
	default:
		return fmt.Errorf("%w: kind %d", ErrUnknownInteraction, in.Kind)
	}
}

func (r *Router) command(ctx context.Context, in Interaction, t *tracked) error {
	switch in.Command {
	case CommandEndGame:
		reply, err := r.flow.Start(ctx, in.Actor, in.ChannelID)
		if err != nil {
			return err
		}
		return t.Respond(ctx, reply)

	case CommandMyRank:
		if err := t.Respond(ctx, ui.Text(workflow.MsgRankLoading)); err != nil {
			return err
		}
		return t.Edit(ctx, r.league.MyRank(ctx, in.Actor))

	case CommandLadder:
		if err := t.Respond(ctx, ui.Reply{Content: workflow.MsgLadderLoading}); err != nil {
			return err
		}
		return t.Edit(ctx, r.league.Ladder(ctx))

	case CommandRoast:
		if in.Target == nil {
			return fmt.Errorf("%w: target", workflow.ErrMissingField)
		}
		if err := workflow.CheckRoast(in.Actor, *in.Target); err != nil {
			return err
		}
		if err := t.Respond(ctx, ui.Text(workflow.MsgRoastLoading)); err != nil {
			return err
		}
		msg, failure, err := r.league.Roast(ctx, in.Actor, *in.Target)
		if err != nil {
			return t.Edit(ctx, failure)
		}
		if err := t.Delete(ctx); err != nil {
			r.logger.Warn(ctx, "could not delete roast placeholder", logger.Error(err))
		}
		return t.FollowUp(ctx, ui.Reply{Content: msg})

	default:
		return fmt.Errorf("%w: command %q", ErrUnknownInteraction, in.Command)
	}
}

// step decodes the control identifier and runs the matching workflow step.
// Forms may only answer form steps and buttons only button steps.
func (r *Router) step(ctx context.Context, in Interaction) (ui.Reply, error) {
	p, err := stepid.Decode(in.CustomID)
	if err != nil {
		return ui.Reply{}, err
	}

	switch v := p.(type) {
	case stepid.WinnerScore:
		if in.Kind != KindForm {
			break
		}
		return r.flow.WinnerScore(ctx, in.Actor, v, in.Fields)
	case stepid.RemainingScores:
		if in.Kind != KindForm {
			break
		}
		return r.flow.RemainingScores(ctx, in.Actor, v, in.Fields, in.Ref)
	case stepid.ChooseCount:
		if in.Kind != KindComponent {
			break
		}
		return r.flow.ChooseCount(ctx, in.Actor, v)
	case stepid.SelectPlayers:
		if in.Kind != KindComponent {
			break
		}
		return r.flow.SelectPlayers(ctx, in.Actor, v, in.Values)
	case stepid.ChooseWinner:
		if in.Kind != KindComponent {
			break
		}
		return r.flow.ChooseWinner(ctx, in.Actor, v)
	case stepid.ContinueScores:
		if in.Kind != KindComponent {
			break
		}
		return r.flow.ContinueScores(ctx, in.Actor, v)
	}
	return ui.Reply{}, fmt.Errorf("%w: %s %q", stepid.ErrMalformed, in.Kind, in.CustomID)
}

// fail reports err to the user through whichever path is still open.
func (r *Router) fail(ctx context.Context, in Interaction, t *tracked, err error) {
	msg, known := workflow.Describe(err)
	if known {
		r.logger.Info(ctx, "interaction rejected",
			logger.String("interaction_id", in.ID),
			logger.String("custom_id", in.CustomID),
			logger.Error(err),
		)
	} else {
		msg = workflow.MsgSomethingWrong
		metrics.RecordErrorByComponent("router", "unhandled")
		r.logger.Error(ctx, "interaction failed",
			logger.String("interaction_id", in.ID),
			logger.String("command", in.Command),
			logger.String("custom_id", in.CustomID),
			logger.Error(err),
		)
	}

	reply := ui.Text(msg)
	var sendErr error
	if t.responded {
		sendErr = t.FollowUp(ctx, reply)
	} else {
		sendErr = t.Respond(ctx, reply)
	}
	if sendErr != nil && !errors.Is(sendErr, context.Canceled) {
		r.logger.Warn(ctx, "could not report failure", logger.Error(sendErr))
	}
}

// tracked remembers whether the primary response went out.
type tracked struct {
	Responder
	responded bool
}

func (t *tracked) Respond(ctx context.Context, reply ui.Reply) error {
	if t.responded {
		return t.Responder.FollowUp(ctx, reply)
	}
	err := t.Responder.Respond(ctx, reply)
	t.responded = err == nil
	return err
}
