package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ActionKind 在入口处一次性判定，后续流程只对类型化变体分派，不再碰原始字符串。
type ActionKind int

const (
	ActionIgnored ActionKind = iota
	ActionEnter
	ActionSoftExit
	ActionMoveSLBE
)

// Action is the closed, validated form of an inbound alert's action field.
type Action struct {
	Kind      ActionKind
	Direction Side   // SideBuy for *_LONG, SideSell for *_SHORT
	Token     string // canonical token, used for dedup keys and logs
	SL        *decimal.Decimal
	TP        *decimal.Decimal
}

// Long reports whether the action targets the long side.
func (a Action) Long() bool { return a.Direction == SideBuy }

// Validation failures are client errors (bad alert), never retryable.
var (
	ErrMissingStops    = errors.New("entry requires numeric sl and tp")
	ErrStopRelation    = errors.New("sl/tp relation inverted for direction")
	ErrMissingStopLoss = errors.New("move-sl requires numeric sl")
)

var canonicalTokens = map[string]struct {
	kind ActionKind
	side Side
}{
	"ENTER_LONG":       {ActionEnter, SideBuy},
	"ENTER_SHORT":      {ActionEnter, SideSell},
	"SOFT_EXIT_LONG":   {ActionSoftExit, SideBuy},
	"SOFT_EXIT_SHORT":  {ActionSoftExit, SideSell},
	"MOVE_SL_BE_LONG":  {ActionMoveSLBE, SideBuy},
	"MOVE_SL_BE_SHORT": {ActionMoveSLBE, SideSell},
}

// Decide resolves the raw token through the configured alias table and binds
// the payload the variant requires. Unknown tokens come back as ActionIgnored
// with no error: an ignored action is a designed no-op, not a failure.
//
// The sl<tp (long) / sl>tp (short) guard runs on the unscaled values, before
// any price multiplier, so it checks what the alert author wrote.
func Decide(rawAction string, aliases map[string]string, sl, tp *decimal.Decimal) (Action, error) {
	token := strings.ToUpper(strings.TrimSpace(rawAction))
	for from, to := range aliases {
		if strings.ToUpper(strings.TrimSpace(from)) == token {
			token = strings.ToUpper(strings.TrimSpace(to))
			break
		}
	}
	spec, ok := canonicalTokens[token]
	if !ok {
		return Action{Kind: ActionIgnored, Token: token}, nil
	}
	act := Action{Kind: spec.kind, Direction: spec.side, Token: token, SL: sl, TP: tp}

	switch spec.kind {
	case ActionEnter:
		if sl == nil || tp == nil {
			return Action{}, fmt.Errorf("%w: action %s", ErrMissingStops, token)
		}
		if spec.side == SideBuy && !sl.LessThan(*tp) {
			return Action{}, fmt.Errorf("%w: long needs sl < tp, got sl=%s tp=%s", ErrStopRelation, sl, tp)
		}
		if spec.side == SideSell && !sl.GreaterThan(*tp) {
			return Action{}, fmt.Errorf("%w: short needs sl > tp, got sl=%s tp=%s", ErrStopRelation, sl, tp)
		}
	case ActionMoveSLBE:
		if sl == nil {
			return Action{}, fmt.Errorf("%w: action %s", ErrMissingStopLoss, token)
		}
	}
	return act, nil
}
