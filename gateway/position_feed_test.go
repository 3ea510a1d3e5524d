package gateway

import (
	"testing"
	"time"

	"tv-executor-go/order"
)

func TestPositionFeedHandleMessage(t *testing.T) {
	f := NewPositionFeed("wss://example", "k", "s")
	f.handleMessage([]byte(`{"topic":"position","data":[{"symbol":"SOLUSDT","side":"Buy","size":"2.5"}]}`))

	pos, ok := f.Lookup("SOLUSDT", time.Second)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if pos.Side != order.SideBuy || pos.Size != 2.5 {
		t.Fatalf("pos = %+v", pos)
	}

	// Flat update overwrites.
	f.handleMessage([]byte(`{"topic":"position","data":[{"symbol":"SOLUSDT","side":"None","size":"0"}]}`))
	pos, ok = f.Lookup("SOLUSDT", time.Second)
	if !ok || !pos.Flat() {
		t.Fatalf("expected fresh flat snapshot, got %+v ok=%v", pos, ok)
	}
}

func TestPositionFeedLookupExpiry(t *testing.T) {
	f := NewPositionFeed("wss://example", "k", "s")
	f.handleMessage([]byte(`{"topic":"position","data":[{"symbol":"SOLUSDT","side":"Buy","size":"1"}]}`))
	f.mu.Lock()
	entry := f.cache["SOLUSDT"]
	entry.at = time.Now().Add(-time.Minute)
	f.cache["SOLUSDT"] = entry
	f.mu.Unlock()

	if _, ok := f.Lookup("SOLUSDT", time.Second); ok {
		t.Fatalf("stale cache entry must miss")
	}
}

func TestPositionFeedIgnoresOtherTopics(t *testing.T) {
	f := NewPositionFeed("wss://example", "k", "s")
	f.handleMessage([]byte(`{"topic":"order","data":[{"symbol":"SOLUSDT"}]}`))
	if _, ok := f.Lookup("SOLUSDT", time.Second); ok {
		t.Fatalf("non-position topic must not populate cache")
	}
}

func TestBackoffCaps(t *testing.T) {
	if backoff(0) != time.Second {
		t.Fatalf("backoff(0) = %v", backoff(0))
	}
	if backoff(3) != 8*time.Second {
		t.Fatalf("backoff(3) = %v", backoff(3))
	}
	if backoff(100) != 60*time.Second {
		t.Fatalf("backoff(100) = %v", backoff(100))
	}
}
