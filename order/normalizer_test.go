package order

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeQtyFloors(t *testing.T) {
	f := newFakeExchange()
	f.limits = InstrumentLimits{MinQty: "1.0", Step: "0.1"}
	ctx := context.Background()

	got, err := NormalizeQty(ctx, f, "SOLUSDT", "1.37")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "1.3" {
		t.Fatalf("1.37 -> %s, want 1.3 (never round up)", got)
	}

	if _, err := NormalizeQty(ctx, f, "SOLUSDT", "0.9"); !errors.Is(err, ErrQuantityTooSmall) {
		t.Fatalf("0.9 below min: %v", err)
	}
	if _, err := NormalizeQty(ctx, f, "SOLUSDT", "0.0"); !errors.Is(err, ErrQuantityTooSmall) {
		t.Fatalf("0.0 below min: %v", err)
	}
}

func TestNormalizeQtyZeroed(t *testing.T) {
	f := newFakeExchange()
	f.limits = InstrumentLimits{MinQty: "0", Step: "1"}
	if _, err := NormalizeQty(context.Background(), f, "SOLUSDT", "0.4"); !errors.Is(err, ErrQuantityZeroed) {
		t.Fatalf("flooring 0.4 to step 1 must zero out: %v", err)
	}
}

func TestNormalizeQtyNoFilters(t *testing.T) {
	f := newFakeExchange()
	f.limits = InstrumentLimits{} // venue published no lot filter
	got, err := NormalizeQty(context.Background(), f, "SOLUSDT", "1.37")
	if err != nil || got != "1.37" {
		t.Fatalf("got %s err=%v", got, err)
	}
}

func TestNormalizeQtyExactMultiple(t *testing.T) {
	f := newFakeExchange()
	f.limits = InstrumentLimits{MinQty: "1.0", Step: "0.1"}
	got, err := NormalizeQty(context.Background(), f, "SOLUSDT", "1.3")
	if err != nil || got != "1.3" {
		t.Fatalf("got %s err=%v", got, err)
	}
}
