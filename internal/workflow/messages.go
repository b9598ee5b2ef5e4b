package workflow

import (
	"errors"
	"fmt"

	"github.com/okian/catanbot/internal/adapters/repository"
	"github.com/okian/catanbot/internal/config"
	"github.com/okian/catanbot/internal/domain/scoring"
	"github.com/okian/catanbot/internal/domain/session"
	"github.com/okian/catanbot/internal/domain/stepid"
	"github.com/okian/catanbot/internal/domain/tease"
)

// User-facing texts.
const (
	MsgStart           = "🎲 **End Game Score Entry**\nHow many players were in this game?"
	MsgSaving          = "⏳ **Saving the game...** You will get a confirmation in a moment."
	MsgRankLoading     = "⏳ Looking up your ranking..."
	MsgLadderLoading   = "⏳ Loading leaderboard..."
	MsgRoastLoading    = "🎭 Préparation d'une bonne taquinerie..."
	MsgRoastSelf       = "Tu ne peux pas te taquiner toi-même! Trouve quelqu'un d'autre à embêter 😄"
	MsgRoastFailed     = "Erreur lors du chargement des taquineries!"
	MsgRankingDown     = "❌ Unable to connect to rankings database. Please try again later."
	MsgUnavailable     = "⚠️ This service is unavailable right now. Please try again later."
	MsgSomethingWrong  = "Something went wrong!"
	msgRankNotFound    = "❌ Could not find ranking for \"%s\". Make sure you've played at least one game!"
	msgRoastNoTemplate = "Désolé, je n'ai pas d'inspiration pour taquiner %s aujourd'hui!"
	msgWrongChannel    = "🎲 Please use `/endgame` in the <#%s> channel!"
	msgSelectionCount  = "❌ Please select exactly %d players."
	msgPersist         = "❌ **The game could not be saved:** %v"
)

// Describe turns a step error into the message shown to the user. ok is
// false for errors with no dedicated message; callers then fall back to
// MsgSomethingWrong.
func Describe(err error) (msg string, ok bool) {
	var (
		wrongChannel *WrongChannelError
		selection    *SelectionCountError
	)
	switch {
	case err == nil:
		return "", false
	case errors.As(err, &wrongChannel):
		return fmt.Sprintf(msgWrongChannel, wrongChannel.ChannelID), true
	case errors.As(err, &selection):
		return fmt.Sprintf(msgSelectionCount, selection.Want), true
	case errors.Is(err, session.ErrSessionNotFound):
		return "⌛ This game entry has expired or does not exist. Please run `/endgame` again.", true
	case errors.Is(err, session.ErrSessionCompleted):
		return "✅ This game has already been recorded.", true
	case errors.Is(err, session.ErrOwnerMismatch):
		return "🚫 Only the player who started this entry can continue it.", true
	case errors.Is(err, ErrDuplicatePlayer):
		return "❌ Each player can only be selected once.", true
	case errors.Is(err, ErrPlayersAlreadySet):
		return "❌ Players were already chosen for this game. Run `/endgame` to start over.", true
	case errors.Is(err, ErrWinnerAlreadySet):
		return "❌ The winner was already recorded for this game. Run `/endgame` to start over.", true
	case errors.Is(err, ErrStaleForm):
		return "❌ This form no longer matches the game in progress. Run `/endgame` to start over.", true
	case errors.Is(err, ErrMissingField):
		return "❌ A score is missing. Please fill in every field.", true
	case errors.Is(err, scoring.ErrInvalidScore):
		return fmt.Sprintf("❌ Scores must be whole numbers between %d and %d.", scoring.MinScore, scoring.MaxScore), true
	case errors.Is(err, stepid.ErrMalformed):
		return "❌ This control is invalid or outdated. Run `/endgame` to start over.", true
	case errors.Is(err, tease.ErrSelfTarget):
		return MsgRoastSelf, true
	case errors.Is(err, repository.ErrNotConfigured), errors.Is(err, config.ErrInvalidConfig):
		return MsgUnavailable, true
	case errors.Is(err, ErrQueueFull), errors.Is(err, repository.ErrPersist):
		return fmt.Sprintf(msgPersist, err), true
	default:
		return "", false
	}
}

// outcome labels a step result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionCompleted),
		errors.Is(err, session.ErrOwnerMismatch):
		return session.Reason(err)
	case errors.Is(err, scoring.ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, ErrQueueFull):
		return "queue_full"
	case errors.Is(err, ErrWrongChannel),
		errors.Is(err, ErrSelectionCount),
		errors.Is(err, ErrDuplicatePlayer),
		errors.Is(err, ErrPlayersAlreadySet),
		errors.Is(err, ErrWinnerAlreadySet),
		errors.Is(err, ErrStaleForm),
		errors.Is(err, ErrMissingField):
		return "invalid_input"
	default:
		return "error"
	}
}
