// Package metrics provides Prometheus metrics for the alert executor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AlertsTotal 按动作与结果统计入站告警。
	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvexec_alerts_total",
		Help: "Inbound alerts by action token and outcome",
	}, []string{"action", "outcome"})

	// DedupHits 被去重窗口吸收的重复投递。
	DedupHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvexec_dedup_hits_total",
		Help: "Alert deliveries suppressed by the dedup guard",
	})

	// ExchangeCalls 交易所 REST 调用计数。
	ExchangeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvexec_exchange_calls_total",
		Help: "Exchange REST calls by endpoint and result",
	}, []string{"endpoint", "result"})

	// PollExhausted 轮询预算用尽次数（flat / side）。
	PollExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvexec_poll_exhausted_total",
		Help: "Position polls that ran out of attempts, by phase",
	}, []string{"phase"})

	// UnprotectedPositions 入场后保护单挂载失败（仓位裸奔，必须人工介入）。
	UnprotectedPositions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvexec_unprotected_positions_total",
		Help: "Entries left open without TP/SL after a rejected trading-stop",
	})
)

// StartMetricsServer 启动 Prometheus 指标服务器。
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
