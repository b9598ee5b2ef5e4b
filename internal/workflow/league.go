package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/catanbot/internal/adapters/repository"
	"github.com/okian/catanbot/internal/domain/summary"
	"github.com/okian/catanbot/internal/domain/tease"
	"github.com/okian/catanbot/internal/domain/types"
	"github.com/okian/catanbot/internal/domain/ui"
	"github.com/okian/catanbot/pkg/logger"
	"github.com/okian/catanbot/pkg/metrics"
)

const defaultLadderSize = 5

// Rankings reads the league table.
type Rankings interface {
	TopN(ctx context.Context, n int) ([]types.RankedPlayer, error)
	Rank(ctx context.Context, player string) (types.RankedPlayer, error)
}

// League answers /myrank, /ladder and /roast.
type League struct {
	rankings   Rankings
	teaser     *tease.Selector
	ladderSize int
	logger     logger.Logger
}

// NewLeague creates the league commands. ladderSize < 1 uses the default.
func NewLeague(rankings Rankings, teaser *tease.Selector, ladderSize int, l logger.Logger) *League {
	if ladderSize < 1 {
		ladderSize = defaultLadderSize
	}
	if l == nil {
		l = logger.Get().Named("league")
	}
	return &League{rankings: rankings, teaser: teaser, ladderSize: ladderSize, logger: l}
}

// MyRank returns the final /myrank answer for actor, looked up by name.
func (l *League) MyRank(ctx context.Context, actor types.Player) ui.Reply {
	r, err := l.rankings.Rank(ctx, actor.Name)
	switch {
	case err == nil:
		return ui.Reply{Ephemeral: true, Embed: summary.Rank(r)}
	case errors.Is(err, repository.ErrNotFound):
		return ui.Text(fmt.Sprintf(msgRankNotFound, actor.Name))
	default:
		l.logger.Error(ctx, "rank lookup failed", logger.String("player", actor.Name), logger.Error(err))
		return ui.Text(rankingFailure(err))
	}
}

// Ladder returns the public top of the league.
func (l *League) Ladder(ctx context.Context) ui.Reply {
	rows, err := l.rankings.TopN(ctx, l.ladderSize)
	if err != nil {
		l.logger.Error(ctx, "ladder read failed", logger.Error(err))
		return ui.Reply{Content: rankingFailure(err)}
	}
	return ui.Reply{Content: summary.Ladder(rows)}
}

// CheckRoast rejects a sender teasing themselves.
func CheckRoast(sender, target types.Player) error {
	if sender.ID == target.ID {
		return tease.ErrSelfTarget
	}
	return nil
}

// Roast composes the public teasing message. On failure the returned reply
// replaces the loading message instead.
func (l *League) Roast(ctx context.Context, sender, target types.Player) (public string, failure ui.Reply, err error) {
	if err := CheckRoast(sender, target); err != nil {
		return "", ui.Text(MsgRoastSelf), err
	}
	msg, err := l.teaser.Compose(ctx, target.Mention(), sender.Name)
	switch {
	case err == nil:
		return msg, ui.Reply{}, nil
	case errors.Is(err, tease.ErrNoTemplates):
		return "", ui.Text(fmt.Sprintf(msgRoastNoTemplate, target.Mention())), err
	default:
		metrics.RecordErrorByComponent("league", "teasing")
		l.logger.Error(ctx, "teasing templates unavailable", logger.Error(err))
		return "", ui.Text(MsgRoastFailed), err
	}
}

func rankingFailure(err error) string {
	if errors.Is(err, repository.ErrNotConfigured) {
		return MsgRankingDown
	}
	return "❌ Error retrieving the ranking. Please try again later."
}
