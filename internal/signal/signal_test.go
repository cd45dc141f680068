package signal

import (
	"context"
	"strings"
	"testing"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Decision
	}{
		{"exact buy", "BUY", Buy},
		{"exact sell", "SELL", Sell},
		{"exact hold", "HOLD", Hold},
		{"lowercase", "buy", Buy},
		{"trailing newline", "SELL\n", Sell},
		{"wrapped in prose", "My recommendation is BUY because momentum is strong.", Buy},
		{"buy wins over sell", "Do not SELL yet, BUY the dip.", Buy},
		{"sell in prose", "I would sell at this level.", Sell},
		{"empty", "", Hold},
		{"nonsense", "maybe later", Hold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDecision(tt.raw); got != tt.want {
				t.Errorf("ParseDecision(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRotationWithoutAPIKey(t *testing.T) {
	g := NewGemini("", "gemini-1.5-flash-latest", "BTCUSDT", "BTC", "USDT")

	want := []Decision{Buy, Hold, Sell, Hold, Buy, Hold}
	for i, w := range want {
		got, raw, err := g.GetSignal(context.Background(), Consult{Price: 30000})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("call %d: got %s, want %s", i, got, w)
		}
		if raw != string(w) {
			t.Errorf("call %d: raw reply %q, want %q", i, raw, w)
		}
	}
}

func TestBuildPromptIncludesIndicators(t *testing.T) {
	g := NewGemini("", "gemini-1.5-flash-latest", "BTCUSDT", "BTC", "USDT")
	p := g.buildPrompt(Consult{
		Summary:       "FLAT, no open position.",
		Price:         30030,
		HasIndicators: true,
		RSI14:         35.5,
		SMA20:         30000,
		SMA50:         30500,
		CandleDigest:  "O:29900 C:30030",
	})
	for _, want := range []string{"BTCUSDT", "RSI(14): 35.50", "SMA20: 30000.00", "above SMA20", "below SMA50", "BUY, SELL, or HOLD"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
