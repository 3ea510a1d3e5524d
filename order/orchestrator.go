package order

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tv-executor-go/infrastructure/logger"
	"tv-executor-go/metrics"
)

// Notifier 把需要人工介入的事件推给运维（日志/外部 webhook），可为 nil。
type Notifier interface {
	Notify(level, message string, fields map[string]interface{})
}

// Request is one admitted, validated alert resolved against configuration:
// the exchange contract, its price multiplier and the configured quantity are
// already bound by the ingress layer.
type Request struct {
	Action      Action
	AlertSymbol string // normalized TradingView symbol, for logs
	Symbol      string // exchange contract actually traded
	PriceMult   float64
	Qty         string // requested quantity (entries only)
}

// Orchestrator sequences close/flip, entry, polling and stop attachment for
// one alert at a time per symbol. Every step that depends on exchange state
// re-reads that state; acknowledgment bodies are never trusted as state.
type Orchestrator struct {
	Exchange            Exchange
	Poller              *Poller
	Logger              *logger.Logger
	Notifier            Notifier
	AllowEnterWhileOpen bool

	locks *symbolLocks
}

func NewOrchestrator(ex Exchange, poller *Poller, lg *logger.Logger) *Orchestrator {
	if lg == nil {
		lg = &logger.Logger{Logger: zap.NewNop()}
	}
	return &Orchestrator{
		Exchange: ex,
		Poller:   poller,
		Logger:   lg,
		locks:    newSymbolLocks(),
	}
}

// Handle dispatches on the action variant. The returned error is a transport
// failure only; every business outcome, including rejections, comes back as a
// Result.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Result, error) {
	switch req.Action.Kind {
	case ActionSoftExit:
		return o.softExit(ctx, req)
	case ActionMoveSLBE:
		return o.moveStopLoss(ctx, req)
	case ActionEnter:
		unlock := o.locks.Acquire(req.Symbol)
		defer unlock()
		return o.enter(ctx, req)
	default:
		return Result{OK: true, Ignored: true, Action: req.Action.Token}, nil
	}
}

// softExit closes the full observed size reduce-only. Fire-and-report: no
// poll afterwards, the next alert re-reads the position anyway.
func (o *Orchestrator) softExit(ctx context.Context, req Request) (Result, error) {
	pos, err := o.Exchange.GetPosition(ctx, req.Symbol)
	if err != nil {
		return Result{}, err
	}
	if pos.Flat() {
		return Result{OK: true, Skipped: true, Reason: "no_open_position", Symbol: req.Symbol}, nil
	}
	ack, err := o.Exchange.PlaceMarket(ctx, req.Symbol, pos.Side.Opposite(), formatSize(pos.Size), true)
	if err != nil {
		return Result{}, err
	}
	if ack.RetCode != 0 {
		o.Logger.Warn("soft exit rejected",
			zap.String("symbol", req.Symbol), zap.Int("retCode", ack.RetCode), zap.String("retMsg", ack.RetMsg))
		return Result{OK: false, Error: ErrCodeOrderRejected, Symbol: req.Symbol, Close: ack.Raw}, nil
	}
	o.Logger.LogOrder("order_event", ack.OrderLinkID, map[string]interface{}{
		"symbol": req.Symbol, "side": string(pos.Side.Opposite()),
		"qty": formatSize(pos.Size), "reduce_only": true,
	})
	return Result{OK: true, Symbol: req.Symbol, Side: string(pos.Side), Size: pos.Size, Close: ack.Raw}, nil
}

// moveStopLoss rewrites only the stop-loss field, leaving take-profit alone.
func (o *Orchestrator) moveStopLoss(ctx context.Context, req Request) (Result, error) {
	pos, err := o.Exchange.GetPosition(ctx, req.Symbol)
	if err != nil {
		return Result{}, err
	}
	if pos.Flat() {
		return Result{OK: false, Error: ErrCodeNoOpenPosition, Symbol: req.Symbol}, nil
	}
	if pos.Side != req.Action.Direction {
		return Result{
			OK: false, Error: ErrCodeSideMismatch, Symbol: req.Symbol,
			Side: string(pos.Side),
		}, nil
	}
	slSent := scaleStop(*req.Action.SL, req.PriceMult)
	ack, err := o.Exchange.SetTradingStop(ctx, req.Symbol, "", slSent)
	if err != nil {
		return Result{}, err
	}
	if ack.RetCode != 0 {
		return Result{
			OK: false, Error: ErrCodeTpslRejected, Symbol: req.Symbol,
			SLRaw: req.Action.SL.String(), SLSent: slSent, Stops: ack.Raw,
		}, nil
	}
	o.Logger.Info("stop loss moved",
		zap.String("symbol", req.Symbol), zap.String("sl_sent", slSent))
	return Result{OK: true, Symbol: req.Symbol, SLRaw: req.Action.SL.String(), SLSent: slSent, Stops: ack.Raw}, nil
}

// enter runs flip → wait flat → re-read → normalize → open → wait visible →
// protect. Every mutation is confirmed by a fresh snapshot before the next
// mutation depends on it.
func (o *Orchestrator) enter(ctx context.Context, req Request) (Result, error) {
	desired := req.Action.Direction

	pos, err := o.Exchange.GetPosition(ctx, req.Symbol)
	if err != nil {
		return Result{}, err
	}

	// Flip: close the opposite side fully and wait for flat before opening.
	var closeRaw []byte
	if !pos.Flat() && pos.Side != desired {
		closeAck, err := o.Exchange.PlaceMarket(ctx, req.Symbol, pos.Side.Opposite(), formatSize(pos.Size), true)
		if err != nil {
			return Result{}, err
		}
		closeRaw = closeAck.Raw
		if closeAck.RetCode != 0 {
			return Result{OK: false, Error: ErrCodeCloseRejected, Symbol: req.Symbol, Close: closeAck.Raw}, nil
		}
		flat, err := o.Poller.WaitFlat(ctx, req.Symbol)
		if err != nil {
			return Result{}, err
		}
		if !flat {
			o.Logger.Warn("flip did not reach flat", zap.String("symbol", req.Symbol))
			return Result{OK: false, Error: ErrCodeNotFlatAfterClose, Symbol: req.Symbol, Close: closeAck.Raw}, nil
		}
	}

	// Re-read: a same-side position means a pyramiding attempt, which policy
	// skips rather than averages into.
	pos, err = o.Exchange.GetPosition(ctx, req.Symbol)
	if err != nil {
		return Result{}, err
	}
	if !pos.Flat() && !o.AllowEnterWhileOpen {
		return Result{
			OK: true, Skipped: true, Reason: "position_already_open",
			Symbol: req.Symbol, Side: string(pos.Side), Size: pos.Size,
		}, nil
	}

	qty, err := NormalizeQty(ctx, o.Exchange, req.Symbol, req.Qty)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuantityTooSmall):
			return Result{OK: false, Error: ErrCodeQtyTooSmall, Symbol: req.Symbol, Reason: err.Error()}, nil
		case errors.Is(err, ErrQuantityZeroed):
			return Result{OK: false, Error: ErrCodeQtyZeroed, Symbol: req.Symbol, Reason: err.Error()}, nil
		default:
			return Result{}, err
		}
	}

	openAck, err := o.Exchange.PlaceMarket(ctx, req.Symbol, desired, qty, false)
	if err != nil {
		return Result{}, err
	}
	if openAck.RetCode != 0 {
		o.Logger.Warn("entry rejected",
			zap.String("symbol", req.Symbol), zap.Int("retCode", openAck.RetCode), zap.String("retMsg", openAck.RetMsg))
		return Result{OK: false, Error: ErrCodeOrderRejected, Symbol: req.Symbol, Qty: qty, Opened: openAck.Raw}, nil
	}

	// The entry is irreversible from here: confirm visibility before touching
	// stops. Attaching protection to a not-yet-visible position is unsafe.
	visible, _, err := o.Poller.WaitSide(ctx, req.Symbol, desired)
	if err != nil {
		return Result{}, err
	}
	if !visible {
		o.notify("CRITICAL", "entry acknowledged but position not visible", map[string]interface{}{
			"symbol": req.Symbol, "qty": qty, "orderLinkId": openAck.OrderLinkID,
		})
		return Result{
			OK: false, Error: ErrCodeNotOpenAfterEntry,
			Symbol: req.Symbol, Qty: qty, Close: closeRaw, Opened: openAck.Raw,
		}, nil
	}

	slSent := scaleStop(*req.Action.SL, req.PriceMult)
	tpSent := scaleStop(*req.Action.TP, req.PriceMult)
	stopAck, err := o.Exchange.SetTradingStop(ctx, req.Symbol, tpSent, slSent)
	if err != nil {
		return Result{}, err
	}
	if stopAck.RetCode != 0 {
		// The position stays open without protection; that must be loud.
		metrics.UnprotectedPositions.Inc()
		o.notify("CRITICAL", "position open without TP/SL", map[string]interface{}{
			"symbol": req.Symbol, "qty": qty,
			"sl_raw": req.Action.SL.String(), "tp_raw": req.Action.TP.String(),
			"sl_sent": slSent, "tp_sent": tpSent, "retMsg": stopAck.RetMsg,
		})
		return Result{
			OK: false, Error: ErrCodeTpslRejected, Symbol: req.Symbol, Qty: qty,
			SLRaw: req.Action.SL.String(), TPRaw: req.Action.TP.String(),
			SLSent: slSent, TPSent: tpSent,
			Opened: openAck.Raw, Stops: stopAck.Raw,
		}, nil
	}

	o.Logger.LogOrder("order_event", openAck.OrderLinkID, map[string]interface{}{
		"symbol": req.Symbol, "side": string(desired), "qty": qty,
		"sl_sent": slSent, "tp_sent": tpSent,
	})
	return Result{
		OK: true, Symbol: req.Symbol, Side: string(desired), Qty: qty,
		SLRaw: req.Action.SL.String(), TPRaw: req.Action.TP.String(),
		SLSent: slSent, TPSent: tpSent,
		Close: closeRaw, Opened: openAck.Raw, Stops: stopAck.Raw,
	}, nil
}

func (o *Orchestrator) notify(level, message string, fields map[string]interface{}) {
	if o.Notifier != nil {
		o.Notifier.Notify(level, message, fields)
	}
}

// scaleStop applies the contract price multiplier to an alert price level.
// Decimal math keeps 0.02 * 1000 at exactly 20.
func scaleStop(v decimal.Decimal, mult float64) string {
	if mult == 0 || mult == 1 {
		return v.String()
	}
	return v.Mul(decimal.NewFromFloat(mult)).String()
}

func formatSize(size float64) string {
	return strconv.FormatFloat(size, 'f', -1, 64)
}
