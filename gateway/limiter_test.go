package gateway

import (
	"testing"
	"time"
)

func TestLimiterBurstPassesImmediately(t *testing.T) {
	l := NewTokenBucketLimiter(1, 3)
	start := time.Now()
	for i := 0; i < 3; i++ {
		l.Wait()
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("burst calls blocked for %v", elapsed)
	}
}

func TestLimiterThrottlesBeyondBurst(t *testing.T) {
	l := NewTokenBucketLimiter(50, 1)
	l.Wait()
	start := time.Now()
	l.Wait() // needs one refill at 50/s, ~20ms
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("second call not throttled, waited only %v", elapsed)
	}
}

func TestLimiterDefaults(t *testing.T) {
	l := NewTokenBucketLimiter(0, 0)
	if l.rate != 5 || l.burst != 1 {
		t.Fatalf("defaults = rate %v burst %v", l.rate, l.burst)
	}
}
