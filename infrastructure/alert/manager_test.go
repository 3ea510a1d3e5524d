package alert

import (
	"sync"
	"testing"
	"time"
)

type recordChannel struct {
	mu   sync.Mutex
	sent []Alert
}

func (c *recordChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, a)
	return nil
}

func (c *recordChannel) Name() string { return "record" }

func TestManagerThrottlesRepeats(t *testing.T) {
	ch := &recordChannel{}
	m := NewManager([]Channel{ch}, time.Hour)

	m.Notify("CRITICAL", "position open without TP/SL", map[string]interface{}{"symbol": "SOLUSDT"})
	m.Notify("CRITICAL", "position open without TP/SL", map[string]interface{}{"symbol": "SOLUSDT"})
	if len(ch.sent) != 1 {
		t.Fatalf("repeat within interval must be throttled, sent=%d", len(ch.sent))
	}

	// Different message is a different throttle key.
	m.Notify("CRITICAL", "entry acknowledged but position not visible", nil)
	if len(ch.sent) != 2 {
		t.Fatalf("distinct message throttled, sent=%d", len(ch.sent))
	}
}

func TestThrottlerAllowsAfterInterval(t *testing.T) {
	th := NewThrottler(10 * time.Millisecond)
	if !th.Allow("k") {
		t.Fatalf("first send must pass")
	}
	if th.Allow("k") {
		t.Fatalf("second send inside interval must be blocked")
	}
	time.Sleep(15 * time.Millisecond)
	if !th.Allow("k") {
		t.Fatalf("send after interval must pass")
	}
}

func TestManagerStampsTimestamp(t *testing.T) {
	ch := &recordChannel{}
	m := NewManager([]Channel{ch}, time.Hour)
	if err := m.SendAlert(Alert{Level: "INFO", Message: "hello"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ch.sent[0].Timestamp.IsZero() {
		t.Fatalf("timestamp not stamped")
	}
}
