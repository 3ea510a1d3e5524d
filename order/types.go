package order

import (
	"context"
	"encoding/json"
)

// Side 交易所侧方向（one-way 模式下仓位方向与下单方向同一词表）。
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Opposite returns the closing side for a position held on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Position is a snapshot of the exchange's net position for one symbol.
// Snapshots are never cached across requests; every decision re-reads.
type Position struct {
	Side Side
	Size float64
}

// Flat reports whether the exchange holds no position.
func (p Position) Flat() bool {
	return p.Side == "" || p.Size <= 0
}

// OrderAck is the exchange acknowledgment for a market order. RetCode 0 means
// accepted; acceptance does not mean the position snapshot reflects it yet.
type OrderAck struct {
	OrderID     string
	OrderLinkID string
	RetCode     int
	RetMsg      string
	Raw         json.RawMessage
}

// StopAck is the acknowledgment for a trading-stop (TP/SL) update.
type StopAck struct {
	RetCode int
	RetMsg  string
	Raw     json.RawMessage
}

// InstrumentLimits carries the lot-size filter for a symbol.
type InstrumentLimits struct {
	MinQty string
	Step   string
}

// Exchange is the gateway surface the orchestrator consumes. All calls are
// synchronous and authenticated; a transport failure is a Go error, an
// exchange-level rejection comes back as a non-zero RetCode.
type Exchange interface {
	GetPosition(ctx context.Context, symbol string) (Position, error)
	PlaceMarket(ctx context.Context, symbol string, side Side, qty string, reduceOnly bool) (OrderAck, error)
	// SetTradingStop updates take-profit and/or stop-loss; empty string leaves
	// the corresponding field untouched.
	SetTradingStop(ctx context.Context, symbol, takeProfit, stopLoss string) (StopAck, error)
	GetInstrumentLimits(ctx context.Context, symbol string) (InstrumentLimits, error)
}
