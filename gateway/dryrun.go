package gateway

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tv-executor-go/order"
)

// DryRunExchange 演练模式网关：合约参数委托给真实只读接口，仓位与成交在内存
// 模拟，下单与止盈止损只记日志。模拟仓位在成交后立即可见，所以轮询首次就命中。
type DryRunExchange struct {
	Limits order.Exchange // 合约参数来源，可为 nil
	Logger *zap.Logger

	mu        sync.Mutex
	positions map[string]order.Position
}

var _ order.Exchange = (*DryRunExchange)(nil)

func NewDryRunExchange(limits order.Exchange, lg *zap.Logger) *DryRunExchange {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &DryRunExchange{
		Limits:    limits,
		Logger:    lg,
		positions: make(map[string]order.Position),
	}
}

func (d *DryRunExchange) GetPosition(_ context.Context, symbol string) (order.Position, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.positions[symbol], nil
}

func (d *DryRunExchange) PlaceMarket(_ context.Context, symbol string, side order.Side, qty string, reduceOnly bool) (order.OrderAck, error) {
	size, err := strconv.ParseFloat(qty, 64)
	if err != nil {
		return order.OrderAck{}, fmt.Errorf("dry run parse qty %q: %w", qty, err)
	}
	d.mu.Lock()
	if reduceOnly {
		delete(d.positions, symbol)
	} else {
		d.positions[symbol] = order.Position{Side: side, Size: size}
	}
	d.mu.Unlock()

	linkID := uuid.NewString()
	d.Logger.Info("dry run order",
		zap.String("symbol", symbol), zap.String("side", string(side)),
		zap.String("qty", qty), zap.Bool("reduceOnly", reduceOnly),
		zap.String("orderLinkId", linkID))
	return order.OrderAck{OrderLinkID: linkID, Raw: []byte(`{"retCode":0,"dryRun":true}`)}, nil
}

func (d *DryRunExchange) SetTradingStop(_ context.Context, symbol, takeProfit, stopLoss string) (order.StopAck, error) {
	d.Logger.Info("dry run trading stop",
		zap.String("symbol", symbol), zap.String("takeProfit", takeProfit), zap.String("stopLoss", stopLoss))
	return order.StopAck{Raw: []byte(`{"retCode":0,"dryRun":true}`)}, nil
}

func (d *DryRunExchange) GetInstrumentLimits(ctx context.Context, symbol string) (order.InstrumentLimits, error) {
	if d.Limits != nil {
		return d.Limits.GetInstrumentLimits(ctx, symbol)
	}
	return order.InstrumentLimits{}, nil
}
