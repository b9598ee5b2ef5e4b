package simulate

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/catanbot/internal/domain/stepid"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/internal/router"
	"github.com/okian/catanbot/internal/workflow"
)

// Handler receives interactions; the router and the app service both fit.
type Handler interface {
	Handle(ctx context.Context, in router.Interaction, resp router.Responder)
}

// Driver plays games through a Handler one interaction at a time.
type Driver struct {
	handler Handler
	channel string
	seq     atomic.Int64
}

// NewDriver creates a Driver posting /endgame in channel.
func NewDriver(h Handler, channel string) *Driver {
	return &Driver{handler: h, channel: channel}
}

// Play enters g from /endgame to the final form. It returns once the bot
// acknowledged the game; persistence happens afterwards.
func (d *Driver) Play(ctx context.Context, g Game) error {
	reply, err := d.send(ctx, g, router.Interaction{Kind: router.KindCommand, Command: router.CommandEndGame})
	if err != nil {
		return err
	}

	countID, err := findButton(reply, func(p stepid.Payload) bool {
		c, ok := p.(stepid.ChooseCount)
		return ok && c.Count == len(g.Players)
	})
	if err != nil {
		return fmt.Errorf("player count: %w", err)
	}
	if reply, err = d.send(ctx, g, router.Interaction{Kind: router.KindComponent, CustomID: countID}); err != nil {
		return err
	}

	if reply.UserSelect == nil {
		return fmt.Errorf("%w: no user select after count: %q", ErrUnexpectedReply, reply.Content)
	}
	in := router.Interaction{Kind: router.KindComponent, CustomID: reply.UserSelect.CustomID, Values: g.Players}
	if reply, err = d.send(ctx, g, in); err != nil {
		return err
	}

	winnerID, err := findButton(reply, func(p stepid.Payload) bool {
		w, ok := p.(stepid.ChooseWinner)
		return ok && w.Winner == g.Winner
	})
	if err != nil {
		return fmt.Errorf("winner: %w", err)
	}
	if reply, err = d.send(ctx, g, router.Interaction{Kind: router.KindComponent, CustomID: winnerID}); err != nil {
		return err
	}

	if reply.Form == nil {
		return fmt.Errorf("%w: no winner score form: %q", ErrUnexpectedReply, reply.Content)
	}
	in = router.Interaction{
		Kind:     router.KindForm,
		CustomID: reply.Form.CustomID,
		Fields:   map[string]string{stepid.FieldWinnerScore: strconv.Itoa(g.Scores[g.Winner])},
	}
	if reply, err = d.send(ctx, g, in); err != nil {
		return err
	}

	if len(reply.Buttons) == 0 {
		return fmt.Errorf("%w: no continue button: %q", ErrUnexpectedReply, reply.Content)
	}
	in = router.Interaction{Kind: router.KindComponent, CustomID: reply.Buttons[0].CustomID}
	if reply, err = d.send(ctx, g, in); err != nil {
		return err
	}

	if reply.Form == nil {
		return fmt.Errorf("%w: no scores form: %q", ErrUnexpectedReply, reply.Content)
	}
	fields := make(map[string]string, len(reply.Form.Fields))
	for _, f := range reply.Form.Fields {
		i, err := stepid.ParseScoreField(f.CustomID)
		if err != nil || i < 0 || i >= len(g.Scores) {
			return fmt.Errorf("%w: score field %q", ErrUnexpectedReply, f.CustomID)
		}
		fields[f.CustomID] = strconv.Itoa(g.Scores[i])
	}
	in = router.Interaction{Kind: router.KindForm, CustomID: reply.Form.CustomID, Fields: fields}
	if reply, err = d.send(ctx, g, in); err != nil {
		return err
	}

	if reply.Content != workflow.MsgSaving {
		return fmt.Errorf("%w: final step: %q", ErrUnexpectedReply, reply.Content)
	}
	return nil
}

func (d *Driver) send(ctx context.Context, g Game, in router.Interaction) (ui.Reply, error) {
	n := d.seq.Add(1)
	in.ID = "sim-" + strconv.FormatInt(n, 10)
	in.ChannelID = d.channel
	in.Actor = g.Owner
	in.Ref = ui.InteractionRef{AppID: "simulator", Token: in.ID}

	r := &recorder{}
	d.handler.Handle(ctx, in, r)
	reply, ok := r.last()
	if !ok {
		return ui.Reply{}, fmt.Errorf("%w: no answer to interaction %s", ErrUnexpectedReply, in.ID)
	}
	return reply, nil
}

func findButton(reply ui.Reply, match func(stepid.Payload) bool) (string, error) {
	for _, b := range reply.Buttons {
		p, err := stepid.Decode(b.CustomID)
		if err == nil && match(p) {
			return b.CustomID, nil
		}
	}
	return "", fmt.Errorf("%w: no matching button in %q", ErrUnexpectedReply, reply.Content)
}

// recorder is an in-memory router.Responder.
type recorder struct {
	mu      sync.Mutex
	replies []ui.Reply
}

func (r *recorder) add(reply ui.Reply) {
	r.mu.Lock()
	r.replies = append(r.replies, reply)
	r.mu.Unlock()
}

func (r *recorder) last() (ui.Reply, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return ui.Reply{}, false
	}
	return r.replies[len(r.replies)-1], true
}

func (r *recorder) Respond(_ context.Context, reply ui.Reply) error {
	r.add(reply)
	return nil
}

func (r *recorder) Edit(_ context.Context, reply ui.Reply) error {
	r.add(reply)
	return nil
}

func (r *recorder) Delete(context.Context) error { return nil }

func (r *recorder) FollowUp(_ context.Context, reply ui.Reply) error {
	r.add(reply)
	return nil
}
