package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tv-executor-go/metrics"
	"tv-executor-go/order"
)

// BybitRESTClient 一个可签名的 Bybit v5 简化客户端；HTTPClient 可注入 httptest。
// 所有请求走 linear 分类、one-way 仓位模式。
type BybitRESTClient struct {
	BaseURL      string
	APIKey       string
	Secret       string
	RecvWindowMs int
	HTTPClient   *http.Client
	Limiter      RateLimiter
}

// envelope 是 Bybit v5 的统一响应外壳。
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

var _ order.Exchange = (*BybitRESTClient)(nil)

func (c *BybitRESTClient) recvWindow() string {
	if c.RecvWindowMs > 0 {
		return strconv.Itoa(c.RecvWindowMs)
	}
	return "5000"
}

func (c *BybitRESTClient) do(ctx context.Context, method, path string, params map[string]string, body any) ([]byte, *envelope, error) {
	if c == nil || c.HTTPClient == nil {
		return nil, nil, fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		c.Limiter.Wait()
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	rw := c.recvWindow()

	var req *http.Request
	var err error
	if method == http.MethodGet {
		query := SortedQuery(params)
		sig := Sign(ts+c.APIKey+rw+query, c.Secret)
		endpoint := c.BaseURL + path
		if query != "" {
			endpoint += "?" + query
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, nil, err
		}
		c.setAuthHeaders(req, ts, rw, sig)
	} else {
		// 签名针对精确的 body 字节，序列化一次后复用。
		raw, merr := json.Marshal(body)
		if merr != nil {
			return nil, nil, merr
		}
		sig := Sign(ts+c.APIKey+rw+string(raw), c.Secret)
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(raw))
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.setAuthHeaders(req, ts, rw, sig)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.ExchangeCalls.WithLabelValues(path, "transport_error").Inc()
		return nil, nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ExchangeCalls.WithLabelValues(path, "transport_error").Inc()
		return nil, nil, err
	}
	if resp.StatusCode >= 300 {
		metrics.ExchangeCalls.WithLabelValues(path, "http_error").Inc()
		return nil, nil, fmt.Errorf("%s %s status %d: %s", method, path, resp.StatusCode, payload)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		metrics.ExchangeCalls.WithLabelValues(path, "decode_error").Inc()
		return nil, nil, fmt.Errorf("%s %s decode: %w", method, path, err)
	}
	if env.RetCode == 0 {
		metrics.ExchangeCalls.WithLabelValues(path, "ok").Inc()
	} else {
		metrics.ExchangeCalls.WithLabelValues(path, "ret_error").Inc()
	}
	return payload, &env, nil
}

func (c *BybitRESTClient) setAuthHeaders(req *http.Request, ts, rw, sig string) {
	req.Header.Set("X-BAPI-API-KEY", c.APIKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", rw)
	req.Header.Set("X-BAPI-SIGN", sig)
}

type positionRow struct {
	Side string `json:"side"`
	Size string `json:"size"`
}

// GetPosition 读取 /v5/position/list 的净仓位快照。
func (c *BybitRESTClient) GetPosition(ctx context.Context, symbol string) (order.Position, error) {
	_, env, err := c.do(ctx, http.MethodGet, "/v5/position/list", map[string]string{
		"category": "linear",
		"symbol":   symbol,
	}, nil)
	if err != nil {
		return order.Position{}, err
	}
	if env.RetCode != 0 {
		return order.Position{}, fmt.Errorf("position list retCode %d: %s", env.RetCode, env.RetMsg)
	}
	var result struct {
		List []positionRow `json:"list"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return order.Position{}, fmt.Errorf("position list decode: %w", err)
	}
	if len(result.List) == 0 {
		return order.Position{}, nil
	}
	row := result.List[0]
	size, _ := strconv.ParseFloat(row.Size, 64)
	pos := order.Position{Size: size}
	// Bybit 对 flat 仓位返回 side "" 或 "None"。
	if row.Side == string(order.SideBuy) || row.Side == string(order.SideSell) {
		pos.Side = order.Side(row.Side)
	}
	return pos, nil
}

type createOrderReq struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	ReduceOnly  bool   `json:"reduceOnly"`
	OrderLinkID string `json:"orderLinkId"`
}

// PlaceMarket 市价下单；reduceOnly=true 时只减仓，绝不会开新仓。
func (c *BybitRESTClient) PlaceMarket(ctx context.Context, symbol string, side order.Side, qty string, reduceOnly bool) (order.OrderAck, error) {
	linkID := uuid.NewString()
	raw, env, err := c.do(ctx, http.MethodPost, "/v5/order/create", nil, createOrderReq{
		Category:    "linear",
		Symbol:      symbol,
		Side:        string(side),
		OrderType:   "Market",
		Qty:         qty,
		ReduceOnly:  reduceOnly,
		OrderLinkID: linkID,
	})
	if err != nil {
		return order.OrderAck{}, err
	}
	ack := order.OrderAck{
		OrderLinkID: linkID,
		RetCode:     env.RetCode,
		RetMsg:      env.RetMsg,
		Raw:         raw,
	}
	var result struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(env.Result, &result); err == nil {
		ack.OrderID = result.OrderID
	}
	return ack, nil
}

type tradingStopReq struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	TakeProfit  string `json:"takeProfit,omitempty"`
	StopLoss    string `json:"stopLoss,omitempty"`
	TpslMode    string `json:"tpslMode"`
	TpTriggerBy string `json:"tpTriggerBy,omitempty"`
	SlTriggerBy string `json:"slTriggerBy,omitempty"`
	PositionIdx int    `json:"positionIdx"`
}

// SetTradingStop 设置持仓级 TP/SL；空串表示对应字段不动。
func (c *BybitRESTClient) SetTradingStop(ctx context.Context, symbol, takeProfit, stopLoss string) (order.StopAck, error) {
	body := tradingStopReq{
		Category:    "linear",
		Symbol:      symbol,
		TakeProfit:  takeProfit,
		StopLoss:    stopLoss,
		TpslMode:    "Full",
		PositionIdx: 0, // one-way mode
	}
	if takeProfit != "" {
		body.TpTriggerBy = "LastPrice"
	}
	if stopLoss != "" {
		body.SlTriggerBy = "LastPrice"
	}
	raw, env, err := c.do(ctx, http.MethodPost, "/v5/position/trading-stop", nil, body)
	if err != nil {
		return order.StopAck{}, err
	}
	return order.StopAck{RetCode: env.RetCode, RetMsg: env.RetMsg, Raw: raw}, nil
}

// GetInstrumentLimits 读取 lotSizeFilter 的最小下单量与步长。
func (c *BybitRESTClient) GetInstrumentLimits(ctx context.Context, symbol string) (order.InstrumentLimits, error) {
	_, env, err := c.do(ctx, http.MethodGet, "/v5/market/instruments-info", map[string]string{
		"category": "linear",
		"symbol":   symbol,
	}, nil)
	if err != nil {
		return order.InstrumentLimits{}, err
	}
	if env.RetCode != 0 {
		return order.InstrumentLimits{}, fmt.Errorf("instruments-info retCode %d: %s", env.RetCode, env.RetMsg)
	}
	var result struct {
		List []struct {
			LotSizeFilter struct {
				MinOrderQty string `json:"minOrderQty"`
				QtyStep     string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return order.InstrumentLimits{}, fmt.Errorf("instruments-info decode: %w", err)
	}
	if len(result.List) == 0 {
		return order.InstrumentLimits{}, fmt.Errorf("instruments-info: no data for %s", symbol)
	}
	lot := result.List[0].LotSizeFilter
	return order.InstrumentLimits{MinQty: lot.MinOrderQty, Step: lot.QtyStep}, nil
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client，进程级共享、关停时释放。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
