// Package dedup grants at-most-one admission per logical alert event.
// TradingView re-delivers webhooks on timeouts and bar repaints; one key per
// (action, symbol, event) with an action-class TTL suppresses the replays.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store 抽象 "set-if-absent with expiry"。写入成功（即本次创建了记录）返回 true。
type Store interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// TTLConfig 按动作类别选择去重窗口。
type TTLConfig struct {
	Enter   time.Duration // ENTER_* 短窗口
	Exit    time.Duration // SOFT_EXIT_* 长窗口
	Default time.Duration
}

// Guard computes admission keys and performs the single atomic store write.
type Guard struct {
	store  Store
	prefix string
	ttl    TTLConfig
}

func NewGuard(store Store, prefix string, ttl TTLConfig) *Guard {
	if prefix == "" {
		prefix = "dedup:tv"
	}
	return &Guard{store: store, prefix: prefix, ttl: ttl}
}

// Key builds prefix:ACTION:SYMBOL:EVENT_ID.
func (g *Guard) Key(action, symbol, eventID string) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		g.prefix,
		strings.ToUpper(strings.TrimSpace(action)),
		strings.ToUpper(strings.TrimSpace(symbol)),
		strings.TrimSpace(eventID),
	)
}

// EventID derives the dedup event identity: the alert time, suffixed with the
// bar index when present so a repainted bar with the same timestamp still
// gets its own key.
func EventID(alertTime string, barIndex *int64) string {
	id := strings.TrimSpace(alertTime)
	if barIndex != nil {
		id = fmt.Sprintf("%s#%d", id, *barIndex)
	}
	return id
}

// TTLFor 返回动作对应的窗口。
func (g *Guard) TTLFor(action string) time.Duration {
	a := strings.ToUpper(action)
	switch {
	case strings.HasPrefix(a, "ENTER_"):
		return g.ttl.Enter
	case strings.HasPrefix(a, "SOFT_EXIT_"):
		return g.ttl.Exit
	default:
		return g.ttl.Default
	}
}

// Admit returns true iff this call created the record. A store failure must
// surface as an error: silently admitting on outage would void the
// at-most-once guarantee, silently rejecting would drop live signals.
func (g *Guard) Admit(ctx context.Context, action, symbol, eventID string) (bool, error) {
	key := g.Key(action, symbol, eventID)
	created, err := g.store.SetIfAbsent(ctx, key, "1", g.TTLFor(action))
	if err != nil {
		return false, fmt.Errorf("dedup store: %w", err)
	}
	return created, nil
}
