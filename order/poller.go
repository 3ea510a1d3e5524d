package order

import (
	"context"
	"time"

	"tv-executor-go/metrics"
)

// Poll runs fn up to attempts times, sleeping interval between tries. It
// returns (true, nil) as soon as fn reports done, (false, nil) when the
// budget is exhausted, and fn's error unchanged — a transport failure is the
// caller's problem, not something to retry blindly.
func Poll(ctx context.Context, attempts int, interval time.Duration, fn func(context.Context) (bool, error)) (bool, error) {
	for i := 0; i < attempts; i++ {
		done, err := fn(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
	return false, nil
}

// PositionCache 可选的快照快路径（WS 私有频道喂的缓存）。
type PositionCache interface {
	Lookup(symbol string, maxAge time.Duration) (Position, bool)
}

// Poller waits for the exchange's position snapshot to catch up with an
// acknowledged mutation. Order acks on this venue do not guarantee the
// position list reflects them yet.
type Poller struct {
	Exchange Exchange
	Cache    PositionCache // optional; nil means REST only
	CacheAge time.Duration
	Attempts int
	Interval time.Duration
}

func (p *Poller) snapshot(ctx context.Context, symbol string) (Position, error) {
	if p.Cache != nil {
		if pos, ok := p.Cache.Lookup(symbol, p.CacheAge); ok {
			return pos, nil
		}
	}
	return p.Exchange.GetPosition(ctx, symbol)
}

// WaitFlat polls until the position size reads zero or the budget runs out.
func (p *Poller) WaitFlat(ctx context.Context, symbol string) (bool, error) {
	flat, err := Poll(ctx, p.Attempts, p.Interval, func(ctx context.Context) (bool, error) {
		pos, err := p.snapshot(ctx, symbol)
		if err != nil {
			return false, err
		}
		return pos.Flat(), nil
	})
	if err == nil && !flat {
		metrics.PollExhausted.WithLabelValues("flat").Inc()
	}
	return flat, err
}

// WaitSide polls until an open position on the desired side is visible,
// returning the observed snapshot alongside.
func (p *Poller) WaitSide(ctx context.Context, symbol string, desired Side) (bool, Position, error) {
	var last Position
	ok, err := Poll(ctx, p.Attempts, p.Interval, func(ctx context.Context) (bool, error) {
		pos, err := p.snapshot(ctx, symbol)
		if err != nil {
			return false, err
		}
		last = pos
		return pos.Side == desired && pos.Size > 0, nil
	})
	if err == nil && !ok {
		metrics.PollExhausted.WithLabelValues("side").Inc()
	}
	return ok, last, err
}
