package order

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollSucceedsEarly(t *testing.T) {
	n := 0
	ok, err := Poll(context.Background(), 5, time.Millisecond, func(context.Context) (bool, error) {
		n++
		return n == 2, nil
	})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if n != 2 {
		t.Fatalf("predicate evaluated %d times, want 2", n)
	}
}

func TestPollExhaustsWithoutError(t *testing.T) {
	n := 0
	ok, err := Poll(context.Background(), 3, time.Millisecond, func(context.Context) (bool, error) {
		n++
		return false, nil
	})
	if err != nil {
		t.Fatalf("exhaustion is not an error: %v", err)
	}
	if ok || n != 3 {
		t.Fatalf("ok=%v attempts=%d", ok, n)
	}
}

func TestPollPropagatesError(t *testing.T) {
	boom := errors.New("transport down")
	ok, err := Poll(context.Background(), 5, time.Millisecond, func(context.Context) (bool, error) {
		return false, boom
	})
	if ok || !errors.Is(err, boom) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestPollHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := Poll(ctx, 5, time.Hour, func(context.Context) (bool, error) {
		return false, nil
	})
	if ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestWaitFlatAndWaitSide(t *testing.T) {
	f := newFakeExchange(Position{Side: SideSell, Size: 1}, Position{})
	p := &Poller{Exchange: f, Attempts: 3, Interval: time.Millisecond}

	flat, err := p.WaitFlat(context.Background(), "SOLUSDT")
	if err != nil || !flat {
		t.Fatalf("flat=%v err=%v", flat, err)
	}

	f = newFakeExchange(Position{}, Position{Side: SideBuy, Size: 2})
	p = &Poller{Exchange: f, Attempts: 3, Interval: time.Millisecond}
	ok, pos, err := p.WaitSide(context.Background(), "SOLUSDT", SideBuy)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if pos.Side != SideBuy || pos.Size != 2 {
		t.Fatalf("pos = %+v", pos)
	}
}

func TestWaitSideExhausts(t *testing.T) {
	f := newFakeExchange(Position{}) // never opens
	p := &Poller{Exchange: f, Attempts: 2, Interval: time.Millisecond}
	ok, _, err := p.WaitSide(context.Background(), "SOLUSDT", SideBuy)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

// staticCache serves a fixed snapshot regardless of age bound.
type staticCache struct {
	pos   Position
	fresh bool
}

func (c staticCache) Lookup(string, time.Duration) (Position, bool) {
	return c.pos, c.fresh
}

func TestPollerPrefersFreshCache(t *testing.T) {
	f := newFakeExchange(Position{Side: SideSell, Size: 1}) // REST would say open
	p := &Poller{
		Exchange: f,
		Cache:    staticCache{pos: Position{}, fresh: true},
		CacheAge: time.Second,
		Attempts: 1,
		Interval: time.Millisecond,
	}
	flat, err := p.WaitFlat(context.Background(), "SOLUSDT")
	if err != nil || !flat {
		t.Fatalf("flat=%v err=%v", flat, err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("fresh cache must avoid REST: %v", f.calls)
	}
}

func TestPollerFallsBackToRESTOnStaleCache(t *testing.T) {
	f := newFakeExchange(Position{})
	p := &Poller{
		Exchange: f,
		Cache:    staticCache{fresh: false},
		CacheAge: time.Second,
		Attempts: 1,
		Interval: time.Millisecond,
	}
	flat, err := p.WaitFlat(context.Background(), "SOLUSDT")
	if err != nil || !flat {
		t.Fatalf("flat=%v err=%v", flat, err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("stale cache must hit REST once: %v", f.calls)
	}
}
