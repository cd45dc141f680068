// Package signal provides the trading-signal service: an AI consultant that
// turns a market summary into BUY/SELL/HOLD, with an offline fallback.
package signal

import (
	"context"
	"strings"
)

// Decision is the trading signal returned by a consultation.
type Decision string

const (
	Buy  Decision = "BUY"
	Sell Decision = "SELL"
	Hold Decision = "HOLD"
)

// Consult is one request to the signal service. Indicator fields are only
// meaningful when HasIndicators is set.
type Consult struct {
	Summary       string // current market/position framing
	Price         float64
	HasIndicators bool
	RSI14         float64
	SMA20         float64
	SMA50         float64
	CandleDigest  string // short human-readable recent-candle summary
}

// Service produces a trading decision from a market summary. Implementations
// must never return anything but BUY/SELL/HOLD; unparseable replies default
// to HOLD.
type Service interface {
	// GetSignal returns the decision plus the raw model reply for auditing.
	GetSignal(ctx context.Context, req Consult) (Decision, string, error)
}

// ParseDecision normalizes a free-text model reply. Exact matches win, then
// substring matching (BUY before SELL), then HOLD.
func ParseDecision(text string) Decision {
	up := strings.ToUpper(strings.TrimSpace(text))
	switch up {
	case "BUY":
		return Buy
	case "SELL":
		return Sell
	case "HOLD":
		return Hold
	}
	if strings.Contains(up, "BUY") {
		return Buy
	}
	if strings.Contains(up, "SELL") {
		return Sell
	}
	return Hold
}
