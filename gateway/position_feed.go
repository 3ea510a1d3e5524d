package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tv-executor-go/order"
)

// PositionFeed 订阅 Bybit 私有 position 频道，把快照写进一个带时效的缓存。
// 纯粹是轮询的快路径：缓存过期或断流时调用方必须回退到 REST。
type PositionFeed struct {
	URL     string // wss://stream.bybit.com/v5/private
	APIKey  string
	Secret  string
	Dialer  *websocket.Dialer
	OnError func(error)

	mu    sync.RWMutex
	cache map[string]cachedPosition
}

type cachedPosition struct {
	pos order.Position
	at  time.Time
}

func NewPositionFeed(url, apiKey, secret string) *PositionFeed {
	return &PositionFeed{
		URL:    url,
		APIKey: apiKey,
		Secret: secret,
		Dialer: websocket.DefaultDialer,
		cache:  make(map[string]cachedPosition),
	}
}

// Lookup returns the cached snapshot for symbol if it is younger than maxAge.
func (f *PositionFeed) Lookup(symbol string, maxAge time.Duration) (order.Position, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.cache[symbol]
	if !ok || time.Since(entry.at) > maxAge {
		return order.Position{}, false
	}
	return entry.pos, true
}

// Run connects, authenticates and consumes position events until ctx is done,
// reconnecting with exponential backoff.
func (f *PositionFeed) Run(ctx context.Context) error {
	retry := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := f.runOnce(ctx)
		if err != nil && f.OnError != nil {
			f.OnError(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(retry)):
		}
		retry++
	}
}

func backoff(retry int) time.Duration {
	const base = time.Second
	const max = 60 * time.Second
	if retry > 6 {
		return max
	}
	d := base * time.Duration(1<<retry)
	if d > max {
		return max
	}
	return d
}

func (f *PositionFeed) runOnce(ctx context.Context) error {
	conn, _, err := f.Dialer.DialContext(ctx, f.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.URL, err)
	}
	defer conn.Close()

	// Private channel auth: hex HMAC over "GET/realtime" + expires.
	expires := strconv.FormatInt(time.Now().Add(10*time.Second).UnixMilli(), 10)
	sig := Sign("GET/realtime"+expires, f.Secret)
	auth := map[string]any{"op": "auth", "args": []any{f.APIKey, expires, sig}}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("ws auth: %w", err)
	}
	sub := map[string]any{"op": "subscribe", "args": []string{"position"}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("ws subscribe: %w", err)
	}

	go func() {
		// Keepalive per Bybit docs; the read loop exits on ctx cancel.
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteJSON(map[string]string{"op": "ping"})
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(message)
	}
}

type positionEvent struct {
	Topic string `json:"topic"`
	Data  []struct {
		Symbol string `json:"symbol"`
		Side   string `json:"side"`
		Size   string `json:"size"`
	} `json:"data"`
}

func (f *PositionFeed) handleMessage(message []byte) {
	var evt positionEvent
	if err := json.Unmarshal(message, &evt); err != nil || evt.Topic != "position" {
		return
	}
	now := time.Now()
	f.mu.Lock()
	for _, row := range evt.Data {
		size, _ := strconv.ParseFloat(row.Size, 64)
		pos := order.Position{Size: size}
		if row.Side == string(order.SideBuy) || row.Side == string(order.SideSell) {
			pos.Side = order.Side(row.Side)
		}
		f.cache[row.Symbol] = cachedPosition{pos: pos, at: now}
	}
	f.mu.Unlock()
}
