package httpapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// tvPayload is the raw webhook body. TradingView templates are sloppy about
// types: numbers arrive as strings or floats depending on how the alert was
// authored, so the flexible fields accept both.
type tvPayload struct {
	Key      string     `json:"key"`
	Action   string     `json:"action"`
	Symbol   string     `json:"symbol"`
	Qty      flexString `json:"qty"`
	Time     flexString `json:"time"`
	BarIndex *flexInt   `json:"bar_index"`
	Price    flexString `json:"price"`
	SL       flexString `json:"sl"`
	TP       flexString `json:"tp"`
}

// flexString unmarshals a JSON string or number into its literal text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

func (f flexString) empty() bool { return f == "" }

// flexInt accepts 123, "123" and "123.0" (TradingView emits bar_index as a
// float in some templates).
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(int64(v))
	return nil
}
