package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrQuantityTooSmall 请求量低于交易所最小下单量。
	ErrQuantityTooSmall = errors.New("qty below instrument minimum")
	// ErrQuantityZeroed 向下取整后数量归零。
	ErrQuantityZeroed = errors.New("qty normalized to zero")
)

// NormalizeQty rounds requested down to the instrument's step grid and checks
// the minimum. Rounding is always downward: the configured quantity is the
// caller's exposure ceiling and must never be exceeded.
func NormalizeQty(ctx context.Context, ex Exchange, symbol, requested string) (string, error) {
	q, err := decimal.NewFromString(requested)
	if err != nil {
		return "", fmt.Errorf("parse qty %q: %w", requested, err)
	}
	limits, err := ex.GetInstrumentLimits(ctx, symbol)
	if err != nil {
		return "", err
	}
	minQty, err := parseLimit(limits.MinQty)
	if err != nil {
		return "", fmt.Errorf("parse minQty %q: %w", limits.MinQty, err)
	}
	step, err := parseLimit(limits.Step)
	if err != nil {
		return "", fmt.Errorf("parse step %q: %w", limits.Step, err)
	}
	if minQty.IsPositive() && q.LessThan(minQty) {
		return "", fmt.Errorf("%w: %s < %s (%s)", ErrQuantityTooSmall, q, minQty, symbol)
	}
	if step.IsPositive() {
		q = q.Div(step).Floor().Mul(step)
	}
	if !q.IsPositive() {
		return "", fmt.Errorf("%w: %s", ErrQuantityZeroed, symbol)
	}
	return q.String(), nil
}

func parseLimit(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
