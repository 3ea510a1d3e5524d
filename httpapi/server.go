package httpapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tv-executor-go/config"
	"tv-executor-go/dedup"
	"tv-executor-go/infrastructure/logger"
	"tv-executor-go/metrics"
	"tv-executor-go/order"
	"tv-executor-go/symbols"
)

// Server wires the webhook route, dedup guard, symbol mapper and the
// orchestrator.
type Server struct {
	R       *gin.Engine
	Orch    *order.Orchestrator
	Guard   *dedup.Guard
	Mapper  *symbols.Mapper
	Logger  *logger.Logger
	Secret  string
	Trading config.TradingConfig
	Aliases map[string]string

	mu    sync.RWMutex
	allow map[string]bool
}

type apiError struct {
	Detail string `json:"detail"`
}

// NewServer builds the router with request logging and recovery middleware.
func NewServer(orch *order.Orchestrator, guard *dedup.Guard, mapper *symbols.Mapper, cfg config.AppConfig, lg *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		lg.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.String("ip", cn.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})
	g.Use(gin.Recovery())

	s := &Server{
		R:       g,
		Orch:    orch,
		Guard:   guard,
		Mapper:  mapper,
		Logger:  lg,
		Secret:  cfg.Webhook.Secret,
		Trading: cfg.Trading,
		Aliases: cfg.Actions.Aliases,
	}
	s.SetAllowlist(cfg.Symbols.Allowlist)

	g.GET("/health", func(cn *gin.Context) { cn.JSON(http.StatusOK, gin.H{"ok": true}) })
	g.POST("/tv/webhook", s.handleWebhook)
	return s
}

// SetAllowlist replaces the symbol allow-list; empty means allow all.
// Called on config hot reload.
func (s *Server) SetAllowlist(list []string) {
	allow := make(map[string]bool, len(list))
	for _, sym := range list {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			allow[sym] = true
		}
	}
	s.mu.Lock()
	s.allow = allow
	s.mu.Unlock()
}

func (s *Server) allowed(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.allow) == 0 || s.allow[symbol]
}

func (s *Server) handleWebhook(cn *gin.Context) {
	var payload tvPayload
	if err := cn.ShouldBindJSON(&payload); err != nil {
		cn.JSON(http.StatusBadRequest, apiError{Detail: "malformed payload: " + err.Error()})
		return
	}
	if subtle.ConstantTimeCompare([]byte(payload.Key), []byte(s.Secret)) != 1 {
		cn.JSON(http.StatusUnauthorized, apiError{Detail: "bad key"})
		return
	}

	normalized := symbols.Normalize(payload.Symbol)
	if normalized == "" {
		cn.JSON(http.StatusBadRequest, apiError{Detail: "symbol required"})
		return
	}
	if !s.allowed(normalized) {
		cn.JSON(http.StatusForbidden, apiError{Detail: "symbol not allowed"})
		return
	}
	if payload.Time.empty() {
		cn.JSON(http.StatusBadRequest, apiError{Detail: "time required for dedup"})
		return
	}

	sl, ok := parseStop(payload.SL)
	if !ok {
		cn.JSON(http.StatusBadRequest, apiError{Detail: "sl is not numeric"})
		return
	}
	tp, ok := parseStop(payload.TP)
	if !ok {
		cn.JSON(http.StatusBadRequest, apiError{Detail: "tp is not numeric"})
		return
	}

	act, err := order.Decide(payload.Action, s.Aliases, sl, tp)
	if err != nil {
		// Inverted or incomplete stops are authoring mistakes, not retryable.
		cn.JSON(http.StatusBadRequest, apiError{Detail: err.Error()})
		return
	}

	// Everything the orchestrator will parse gets validated here, before the
	// dedup write: a rejected delivery must not burn the event's key.
	qty := s.Trading.QtyFor(normalized)
	if !payload.Qty.empty() {
		qty = string(payload.Qty)
	}
	if act.Kind == order.ActionEnter {
		if q, perr := strconv.ParseFloat(qty, 64); perr != nil || q <= 0 {
			cn.JSON(http.StatusBadRequest, apiError{Detail: fmt.Sprintf("qty %q is not a positive number", qty)})
			return
		}
	}

	var barIndex *int64
	if payload.BarIndex != nil {
		v := int64(*payload.BarIndex)
		barIndex = &v
	}
	eventID := dedup.EventID(string(payload.Time), barIndex)
	admitted, err := s.Guard.Admit(cn.Request.Context(), act.Token, normalized, eventID)
	if err != nil {
		// Never silently admit on a store outage.
		s.Logger.LogError(err, map[string]interface{}{"stage": "dedup_admit", "symbol": normalized})
		cn.JSON(http.StatusInternalServerError, apiError{Detail: "dedup store unreachable"})
		return
	}
	if !admitted {
		metrics.DedupHits.Inc()
		metrics.AlertsTotal.WithLabelValues(act.Token, "dedup").Inc()
		s.Logger.LogAlert("alert_event", act.Token, normalized, map[string]interface{}{"outcome": "dedup"})
		cn.JSON(http.StatusOK, order.Result{OK: true, Dedup: true})
		return
	}

	exchangeSymbol, mult := s.Mapper.Resolve(normalized)
	req := order.Request{
		Action:      act,
		AlertSymbol: normalized,
		Symbol:      exchangeSymbol,
		PriceMult:   mult,
		Qty:         qty,
	}

	res, err := s.Orch.Handle(cn.Request.Context(), req)
	if err != nil {
		s.Logger.LogError(err, map[string]interface{}{"action": act.Token, "symbol": exchangeSymbol})
		metrics.AlertsTotal.WithLabelValues(act.Token, "transport_error").Inc()
		cn.JSON(http.StatusInternalServerError, apiError{Detail: err.Error()})
		return
	}
	res.Action = act.Token
	metrics.AlertsTotal.WithLabelValues(act.Token, outcome(res)).Inc()
	s.Logger.LogAlert("alert_event", act.Token, normalized, map[string]interface{}{"outcome": outcome(res)})
	cn.JSON(http.StatusOK, res)
}

func outcome(res order.Result) string {
	switch {
	case res.Ignored:
		return "ignored"
	case res.Skipped:
		return "skipped"
	case !res.OK:
		return res.Error
	default:
		return "ok"
	}
}

func parseStop(v flexString) (*decimal.Decimal, bool) {
	if v.empty() {
		return nil, true
	}
	d, err := decimal.NewFromString(string(v))
	if err != nil {
		return nil, false
	}
	return &d, true
}
