package signal

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// rotation is the deterministic offline sequence used when no API key is
// configured, so the bot stays testable without network access.
var rotation = []Decision{Buy, Hold, Sell, Hold}

// Gemini consults the Google Gemini generateContent API for a trading
// signal. With no API key it cycles through a fixed rotation instead.
type Gemini struct {
	APIKey string
	Model  string

	Symbol     string
	BaseAsset  string
	QuoteAsset string

	client *resty.Client

	mu          sync.Mutex
	rotationIdx int
}

// NewGemini builds the signal client. An empty apiKey enables simulation
// mode; the caller is expected to have logged a warning already.
func NewGemini(apiKey, model, symbol, baseAsset, quoteAsset string) *Gemini {
	return &Gemini{
		APIKey:     apiKey,
		Model:      model,
		Symbol:     symbol,
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
		client: resty.New().
			SetBaseURL(geminiBaseURL).
			SetTimeout(30 * time.Second),
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GetSignal asks Gemini for BUY/SELL/HOLD. A transport or API failure
// returns HOLD together with the error; callers log it and move on without
// retrying inside the cycle.
func (g *Gemini) GetSignal(ctx context.Context, req Consult) (Decision, string, error) {
	if g.APIKey == "" {
		d := g.nextRotation()
		log.Printf("signal: AI not configured, simulated reply: %s", d)
		return d, string(d), nil
	}

	prompt := g.buildPrompt(req)

	var out geminiResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.APIKey).
		SetBody(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}).
		SetResult(&out).
		Post(fmt.Sprintf("/models/%s:generateContent", g.Model))
	if err != nil {
		return Hold, "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		return Hold, "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), resp.String())
	}

	raw := extractText(out)
	if raw == "" {
		return Hold, raw, nil
	}
	return ParseDecision(raw), raw, nil
}

// nextRotation advances the simulation sequence deterministically.
func (g *Gemini) nextRotation() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := rotation[g.rotationIdx%len(rotation)]
	g.rotationIdx++
	return d
}

func (g *Gemini) buildPrompt(req Consult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s trading analyst on Binance.\n", g.Symbol)
	b.WriteString("Objective: short-term swing trading (hours to days) with a good risk/reward ratio.\n")
	b.WriteString("Preserving capital comes first; with no clear signal, answer HOLD.\n\n")
	b.WriteString("Current state:\n")
	b.WriteString(req.Summary)
	b.WriteString("\nAdditional market data:\n")
	fmt.Fprintf(&b, "- Current %s price: %.2f %s\n", g.BaseAsset, req.Price, g.QuoteAsset)
	if req.CandleDigest != "" {
		fmt.Fprintf(&b, "- Recent candles: %s\n", req.CandleDigest)
	}
	if req.HasIndicators {
		fmt.Fprintf(&b, "- RSI(14): %.2f\n", req.RSI14)
		fmt.Fprintf(&b, "- SMA20: %.2f\n", req.SMA20)
		fmt.Fprintf(&b, "- SMA50: %.2f\n", req.SMA50)
		fmt.Fprintf(&b, "- Price is %s SMA20 and %s SMA50.\n",
			relation(req.Price, req.SMA20), relation(req.Price, req.SMA50))
	}
	b.WriteString("\nConsidering everything:\n")
	b.WriteString("1. Is there a clear BUY opportunity?\n")
	b.WriteString("2. Is there a clear SELL opportunity?\n")
	b.WriteString("3. Otherwise, or if risk is high, HOLD.\n")
	b.WriteString("Reply with EXACTLY one word: BUY, SELL, or HOLD.")
	return b.String()
}

func relation(price, ma float64) string {
	switch {
	case price > ma:
		return "above"
	case price < ma:
		return "below"
	default:
		return "at"
	}
}

func extractText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
