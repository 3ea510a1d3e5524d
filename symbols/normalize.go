package symbols

import (
	"strings"
	"sync"
)

// Normalize 将 TradingView 侧的符号写法归一为交易所符号：
// "BYBIT:SOLUSDT" -> "SOLUSDT"，"SOLUSDT.P" -> "SOLUSDT"。
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	return s
}

// Mapper resolves a normalized alert symbol to the contract the exchange
// actually trades, plus the price multiplier for 1000x-denominated contracts
// (PEPEUSDT -> 1000PEPEUSDT, mult 1000). Tables are hot-swappable.
type Mapper struct {
	mu        sync.RWMutex
	translate map[string]string
	priceMult map[string]float64
}

func NewMapper(translate map[string]string, priceMult map[string]float64) *Mapper {
	m := &Mapper{}
	m.Swap(translate, priceMult)
	return m
}

// Resolve returns (exchange symbol, price multiplier). Identity / 1.0 when
// the symbol has no table entry.
func (m *Mapper) Resolve(normalized string) (string, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sym := normalized
	if v, ok := m.translate[normalized]; ok && v != "" {
		sym = v
	}
	mult := 1.0
	if v, ok := m.priceMult[normalized]; ok && v > 0 {
		mult = v
	}
	return sym, mult
}

// Swap replaces both tables atomically; used by config hot reload.
func (m *Mapper) Swap(translate map[string]string, priceMult map[string]float64) {
	t := make(map[string]string, len(translate))
	for k, v := range translate {
		t[strings.ToUpper(strings.TrimSpace(k))] = strings.ToUpper(strings.TrimSpace(v))
	}
	p := make(map[string]float64, len(priceMult))
	for k, v := range priceMult {
		p[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	m.mu.Lock()
	m.translate = t
	m.priceMult = p
	m.mu.Unlock()
}
