package order

import "encoding/json"

// Business-outcome codes carried in Result.Error. These are reachable
// outcomes reported with HTTP 200, distinct from transport failures.
const (
	ErrCodeNotFlatAfterClose = "position_not_flat_after_close"
	ErrCodeNotOpenAfterEntry = "position_not_open_after_entry_ack"
	ErrCodeTpslRejected      = "tpsl_rejected"
	ErrCodeOrderRejected     = "order_rejected"
	ErrCodeCloseRejected     = "close_rejected"
	ErrCodeNoOpenPosition    = "no_open_position"
	ErrCodeSideMismatch      = "side_mismatch"
	ErrCodeQtyTooSmall       = "qty_too_small"
	ErrCodeQtyZeroed         = "qty_zeroed"
)

// Result is the structured outcome of one orchestrated alert, rendered
// verbatim as the webhook response body.
type Result struct {
	OK      bool   `json:"ok"`
	Dedup   bool   `json:"dedup,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Ignored bool   `json:"ignored,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`

	Action string  `json:"action,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
	Side   string  `json:"side,omitempty"`
	Size   float64 `json:"size,omitempty"`
	Qty    string  `json:"qty,omitempty"`

	// Raw/scaled stop values for diagnosis when setting protection.
	SLRaw  string `json:"sl_raw,omitempty"`
	TPRaw  string `json:"tp_raw,omitempty"`
	SLSent string `json:"sl_sent,omitempty"`
	TPSent string `json:"tp_sent,omitempty"`

	// Raw exchange responses, never discarded on rejection.
	Close  json.RawMessage `json:"close,omitempty"`
	Opened json.RawMessage `json:"opened,omitempty"`
	Stops  json.RawMessage `json:"stops,omitempty"`
}
