package indicators

import "fmt"

// Periods used by the entry pre-filter and the AI prompt.
const (
	RSIPeriod      = 14
	SMAShortPeriod = 20
	SMALongPeriod  = 50
)

// MinCloses is the smallest usable series: SMALongPeriod closes for the
// current candle plus one more so the previous candle also has an SMA20.
const MinCloses = SMALongPeriod + 1

// Snapshot holds the indicator values for the latest candle and its
// predecessor. It is rebuilt from fresh candle data every cycle and never
// mutated in place.
type Snapshot struct {
	Close     float64
	PrevClose float64
	RSI14     float64
	SMA20     float64
	SMA50     float64
	PrevSMA20 float64
}

// Compute derives a Snapshot from a chronologically ordered close series
// (oldest first, latest last).
func Compute(closes []float64) (Snapshot, error) {
	if len(closes) < MinCloses {
		return Snapshot{}, fmt.Errorf("indicators: need at least %d closes, got %d", MinCloses, len(closes))
	}
	prev := closes[:len(closes)-1]
	return Snapshot{
		Close:     closes[len(closes)-1],
		PrevClose: prev[len(prev)-1],
		RSI14:     RSI(closes, RSIPeriod),
		SMA20:     SMA(closes, SMAShortPeriod),
		SMA50:     SMA(closes, SMALongPeriod),
		PrevSMA20: SMA(prev, SMAShortPeriod),
	}, nil
}
