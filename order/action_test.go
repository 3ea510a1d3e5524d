package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDecideCanonicalTokens(t *testing.T) {
	act, err := Decide("enter_long", nil, dec("90"), dec("100"))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if act.Kind != ActionEnter || act.Direction != SideBuy || act.Token != "ENTER_LONG" {
		t.Fatalf("act = %+v", act)
	}

	act, err = Decide("SOFT_EXIT_SHORT", nil, nil, nil)
	if err != nil || act.Kind != ActionSoftExit || act.Direction != SideSell {
		t.Fatalf("act=%+v err=%v", act, err)
	}

	act, err = Decide("MOVE_SL_BE_LONG", nil, dec("100"), nil)
	if err != nil || act.Kind != ActionMoveSLBE {
		t.Fatalf("act=%+v err=%v", act, err)
	}
}

func TestDecideUnknownIsIgnored(t *testing.T) {
	act, err := Decide("REBALANCE", nil, nil, nil)
	if err != nil {
		t.Fatalf("unknown token must not error: %v", err)
	}
	if act.Kind != ActionIgnored || act.Token != "REBALANCE" {
		t.Fatalf("act = %+v", act)
	}
}

func TestDecideAliases(t *testing.T) {
	aliases := map[string]string{"BUY": "ENTER_LONG", "sell": "ENTER_SHORT"}
	act, err := Decide("buy", aliases, dec("90"), dec("100"))
	if err != nil || act.Token != "ENTER_LONG" || act.Direction != SideBuy {
		t.Fatalf("act=%+v err=%v", act, err)
	}
	act, err = Decide("SELL", aliases, dec("110"), dec("100"))
	if err != nil || act.Token != "ENTER_SHORT" || act.Direction != SideSell {
		t.Fatalf("act=%+v err=%v", act, err)
	}
}

func TestDecideSignGuard(t *testing.T) {
	// Long with sl >= tp is an inverted alert.
	if _, err := Decide("ENTER_LONG", nil, dec("110"), dec("100")); !errors.Is(err, ErrStopRelation) {
		t.Fatalf("expected ErrStopRelation, got %v", err)
	}
	if _, err := Decide("ENTER_LONG", nil, dec("90"), dec("100")); err != nil {
		t.Fatalf("valid long rejected: %v", err)
	}
	if _, err := Decide("ENTER_SHORT", nil, dec("90"), dec("100")); !errors.Is(err, ErrStopRelation) {
		t.Fatalf("expected ErrStopRelation for short, got %v", err)
	}
	if _, err := Decide("ENTER_SHORT", nil, dec("110"), dec("100")); err != nil {
		t.Fatalf("valid short rejected: %v", err)
	}
}

func TestDecideMissingPayload(t *testing.T) {
	if _, err := Decide("ENTER_LONG", nil, dec("90"), nil); !errors.Is(err, ErrMissingStops) {
		t.Fatalf("expected ErrMissingStops, got %v", err)
	}
	if _, err := Decide("MOVE_SL_BE_SHORT", nil, nil, nil); !errors.Is(err, ErrMissingStopLoss) {
		t.Fatalf("expected ErrMissingStopLoss, got %v", err)
	}
}
