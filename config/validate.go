package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Canonical action tokens an alias may point at.
var canonicalActions = map[string]bool{
	"ENTER_LONG":       true,
	"ENTER_SHORT":      true,
	"SOFT_EXIT_LONG":   true,
	"SOFT_EXIT_SHORT":  true,
	"MOVE_SL_BE_LONG":  true,
	"MOVE_SL_BE_SHORT": true,
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Webhook.Secret == "" {
		return errors.New("webhook.secret is required (or TV_WEBHOOK_SECRET)")
	}
	if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" {
		return errors.New("gateway.apiKey/apiSecret is required (or env overrides)")
	}
	if q, err := strconv.ParseFloat(cfg.Trading.DefaultQty, 64); err != nil || q <= 0 {
		return fmt.Errorf("trading.defaultQty %q must be a positive number", cfg.Trading.DefaultQty)
	}
	for sym, q := range cfg.Trading.QtyBySymbol {
		if v, err := strconv.ParseFloat(q, 64); err != nil || v <= 0 {
			return fmt.Errorf("trading.qtyBySymbol[%s] %q must be a positive number", sym, q)
		}
	}
	for sym, mult := range cfg.Symbols.PriceMult {
		if mult <= 0 {
			return fmt.Errorf("symbols.priceMult[%s] must be > 0", sym)
		}
	}
	for raw, canonical := range cfg.Actions.Aliases {
		c := strings.ToUpper(strings.TrimSpace(canonical))
		if !canonicalActions[c] {
			return fmt.Errorf("actions.aliases[%s] targets unknown action %q", raw, canonical)
		}
	}
	if cfg.Trading.PollAttempts < 1 {
		return errors.New("trading.pollAttempts must be >= 1")
	}
	if cfg.Trading.PollIntervalMs < 1 {
		return errors.New("trading.pollIntervalMs must be >= 1")
	}
	return nil
}
