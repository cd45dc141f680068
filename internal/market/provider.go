package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/indicators"
	binancemkt "github.com/IsacDav66/Criptobot/pkg/market/binance"
)

// digestCandles is how many recent candles go into the AI prompt digest.
const digestCandles = 5

// Snapshot bundles everything one trading cycle needs from the market:
// fresh indicators for the decision engines and an exact close price for
// order construction.
type Snapshot struct {
	Indicators   indicators.Snapshot
	Close        decimal.Decimal
	CandleDigest string
}

// Provider produces a fresh market snapshot each cycle.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// BinanceProvider reads klines from the public Binance market endpoints.
type BinanceProvider struct {
	client   *binancemkt.Client
	symbol   string
	interval string
	lookback int
}

// NewBinanceProvider wires the provider for one symbol.
func NewBinanceProvider(client *binancemkt.Client, symbol, interval string, lookback int) *BinanceProvider {
	return &BinanceProvider{client: client, symbol: symbol, interval: interval, lookback: lookback}
}

// Snapshot fetches candles and computes indicators over their closes.
func (p *BinanceProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	klines, err := p.client.GetKlines(ctx, p.symbol, p.interval, p.lookback)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch klines: %w", err)
	}
	if len(klines) < indicators.MinCloses {
		return Snapshot{}, fmt.Errorf("insufficient candles: got %d, need %d", len(klines), indicators.MinCloses)
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	ind, err := indicators.Compute(closes)
	if err != nil {
		return Snapshot{}, fmt.Errorf("compute indicators: %w", err)
	}

	return Snapshot{
		Indicators:   ind,
		Close:        decimal.NewFromFloat(ind.Close),
		CandleDigest: digest(klines),
	}, nil
}

// digest summarizes the most recent candles for the AI prompt.
func digest(klines []binancemkt.Kline) string {
	start := len(klines) - digestCandles
	if start < 0 {
		start = 0
	}
	parts := make([]string, 0, digestCandles)
	for _, k := range klines[start:] {
		parts = append(parts, fmt.Sprintf("[O:%.2f H:%.2f L:%.2f C:%.2f]", k.Open, k.High, k.Low, k.Close))
	}
	return strings.Join(parts, " ")
}
