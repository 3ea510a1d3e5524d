package gateway

import (
	"context"
	"testing"

	"tv-executor-go/order"
)

func TestDryRunSimulatesPositionLifecycle(t *testing.T) {
	d := NewDryRunExchange(nil, nil)
	ctx := context.Background()

	pos, err := d.GetPosition(ctx, "SOLUSDT")
	if err != nil || !pos.Flat() {
		t.Fatalf("fresh dry run must be flat: %+v err=%v", pos, err)
	}

	ack, err := d.PlaceMarket(ctx, "SOLUSDT", order.SideBuy, "2", false)
	if err != nil || ack.RetCode != 0 || ack.OrderLinkID == "" {
		t.Fatalf("open ack = %+v err=%v", ack, err)
	}
	pos, _ = d.GetPosition(ctx, "SOLUSDT")
	if pos.Side != order.SideBuy || pos.Size != 2 {
		t.Fatalf("open not visible: %+v", pos)
	}

	if _, err := d.SetTradingStop(ctx, "SOLUSDT", "100", "90"); err != nil {
		t.Fatalf("trading stop: %v", err)
	}

	if _, err := d.PlaceMarket(ctx, "SOLUSDT", order.SideSell, "2", true); err != nil {
		t.Fatalf("close: %v", err)
	}
	pos, _ = d.GetPosition(ctx, "SOLUSDT")
	if !pos.Flat() {
		t.Fatalf("reduce-only close must flatten: %+v", pos)
	}
}

func TestDryRunRejectsBadQty(t *testing.T) {
	d := NewDryRunExchange(nil, nil)
	if _, err := d.PlaceMarket(context.Background(), "SOLUSDT", order.SideBuy, "abc", false); err == nil {
		t.Fatalf("non-numeric qty accepted")
	}
}

type limitsOnlyExchange struct {
	order.Exchange
	limits order.InstrumentLimits
}

func (l limitsOnlyExchange) GetInstrumentLimits(context.Context, string) (order.InstrumentLimits, error) {
	return l.limits, nil
}

func TestDryRunDelegatesInstrumentLimits(t *testing.T) {
	d := NewDryRunExchange(limitsOnlyExchange{limits: order.InstrumentLimits{MinQty: "1", Step: "0.1"}}, nil)
	got, err := d.GetInstrumentLimits(context.Background(), "SOLUSDT")
	if err != nil || got.MinQty != "1" || got.Step != "0.1" {
		t.Fatalf("limits = %+v err=%v", got, err)
	}
}
