package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tv-executor-go/order"
)

func newTestClient(h http.HandlerFunc) (*BybitRESTClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	cli := &BybitRESTClient{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Secret:     "test-secret",
		HTTPClient: srv.Client(),
		Limiter:    NopLimiter{},
	}
	return cli, srv
}

func TestGetPositionParsesSnapshot(t *testing.T) {
	cli, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/position/list" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-BAPI-API-KEY") != "test-key" || r.Header.Get("X-BAPI-SIGN") == "" {
			t.Fatalf("auth headers missing")
		}
		if got := r.URL.Query().Get("symbol"); got != "SOLUSDT" {
			t.Fatalf("symbol = %s", got)
		}
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[{"side":"Sell","size":"1.5"}]}}`)
	})
	defer srv.Close()

	pos, err := cli.GetPosition(context.Background(), "SOLUSDT")
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if pos.Side != order.SideSell || pos.Size != 1.5 {
		t.Fatalf("pos = %+v", pos)
	}
}

func TestGetPositionFlatVariants(t *testing.T) {
	for _, body := range []string{
		`{"retCode":0,"retMsg":"OK","result":{"list":[]}}`,
		`{"retCode":0,"retMsg":"OK","result":{"list":[{"side":"None","size":"0"}]}}`,
		`{"retCode":0,"retMsg":"OK","result":{"list":[{"side":"","size":""}]}}`,
	} {
		cli, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		})
		pos, err := cli.GetPosition(context.Background(), "SOLUSDT")
		srv.Close()
		if err != nil {
			t.Fatalf("get position: %v", err)
		}
		if !pos.Flat() {
			t.Fatalf("expected flat for %s, got %+v", body, pos)
		}
	}
}

func TestPlaceMarketSignsExactBody(t *testing.T) {
	cli, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		ts := r.Header.Get("X-BAPI-TIMESTAMP")
		rw := r.Header.Get("X-BAPI-RECV-WINDOW")
		want := Sign(ts+"test-key"+rw+string(raw), "test-secret")
		if got := r.Header.Get("X-BAPI-SIGN"); got != want {
			t.Fatalf("signature mismatch: got %s want %s", got, want)
		}
		var req createOrderReq
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("body decode: %v", err)
		}
		if req.Category != "linear" || req.OrderType != "Market" || !req.ReduceOnly {
			t.Fatalf("req = %+v", req)
		}
		if req.OrderLinkID == "" {
			t.Fatalf("orderLinkId missing")
		}
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"orderId":"abc123"}}`)
	})
	defer srv.Close()

	ack, err := cli.PlaceMarket(context.Background(), "SOLUSDT", order.SideSell, "1.5", true)
	if err != nil {
		t.Fatalf("place market: %v", err)
	}
	if ack.OrderID != "abc123" || ack.RetCode != 0 || ack.OrderLinkID == "" {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestPlaceMarketSurfacesRetCode(t *testing.T) {
	cli, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"retCode":110007,"retMsg":"insufficient balance","result":{}}`)
	})
	defer srv.Close()

	ack, err := cli.PlaceMarket(context.Background(), "SOLUSDT", order.SideBuy, "1", false)
	if err != nil {
		t.Fatalf("retCode is data, not a transport error: %v", err)
	}
	if ack.RetCode != 110007 || len(ack.Raw) == 0 {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestSetTradingStopOmitsUntouchedFields(t *testing.T) {
	cli, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, present := body["takeProfit"]; present {
			t.Fatalf("takeProfit should be omitted when empty: %s", raw)
		}
		if body["stopLoss"] != "105.5" || body["slTriggerBy"] != "LastPrice" {
			t.Fatalf("body = %s", raw)
		}
		if body["tpslMode"] != "Full" {
			t.Fatalf("tpslMode = %v", body["tpslMode"])
		}
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{}}`)
	})
	defer srv.Close()

	ack, err := cli.SetTradingStop(context.Background(), "SOLUSDT", "", "105.5")
	if err != nil || ack.RetCode != 0 {
		t.Fatalf("ack=%+v err=%v", ack, err)
	}
}

func TestGetInstrumentLimits(t *testing.T) {
	cli, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"list":[{"lotSizeFilter":{"minOrderQty":"1.0","qtyStep":"0.1"}}]}}`)
	})
	defer srv.Close()

	lim, err := cli.GetInstrumentLimits(context.Background(), "SOLUSDT")
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	if lim.MinQty != "1.0" || lim.Step != "0.1" {
		t.Fatalf("lim = %+v", lim)
	}
}

func TestSortedQueryIsStable(t *testing.T) {
	q := SortedQuery(map[string]string{"symbol": "SOLUSDT", "category": "linear"})
	if q != "category=linear&symbol=SOLUSDT" {
		t.Fatalf("query = %s", q)
	}
}
