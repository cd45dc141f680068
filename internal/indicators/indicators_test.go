package indicators

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		want   float64
	}{
		{"simple window", []float64{1, 2, 3, 4, 5}, 5, 3},
		{"uses only last period values", []float64{100, 100, 1, 2, 3}, 3, 2},
		{"too short", []float64{1, 2}, 3, 0},
		{"zero period", []float64{1, 2, 3}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SMA(tt.values, tt.period); got != tt.want {
				t.Errorf("SMA = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRSI(t *testing.T) {
	t.Run("all gains is 100", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6}
		if got := RSI(values, 5); got != 100 {
			t.Errorf("RSI = %v, want 100", got)
		}
	})
	t.Run("balanced gains and losses is 50", func(t *testing.T) {
		values := []float64{10, 12, 10, 12, 10}
		got := RSI(values, 4)
		if math.Abs(got-50) > 1e-9 {
			t.Errorf("RSI = %v, want 50", got)
		}
	})
	t.Run("too short returns zero", func(t *testing.T) {
		if got := RSI([]float64{1, 2}, 14); got != 0 {
			t.Errorf("RSI = %v, want 0", got)
		}
	})
}

func TestComputeSnapshot(t *testing.T) {
	// 52 closes: flat at 100 then a dip-and-recover tail so the current
	// close sits above SMA20 while the previous close sat below it.
	closes := make([]float64, 0, 52)
	for i := 0; i < 50; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 95, 104)

	snap, err := Compute(closes)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.Close != 104 {
		t.Errorf("Close = %v, want 104", snap.Close)
	}
	if snap.PrevClose != 95 {
		t.Errorf("PrevClose = %v, want 95", snap.PrevClose)
	}
	// Previous candle (95) closed below its own SMA20.
	if snap.PrevClose >= snap.PrevSMA20 {
		t.Errorf("PrevClose %v should be below PrevSMA20 %v", snap.PrevClose, snap.PrevSMA20)
	}
	// Latest candle (104) closed above its SMA20.
	if snap.Close <= snap.SMA20 {
		t.Errorf("Close %v should be above SMA20 %v", snap.Close, snap.SMA20)
	}
	if snap.SMA50 == 0 || snap.RSI14 == 0 {
		t.Errorf("SMA50/RSI14 should be populated, got %+v", snap)
	}
}

func TestComputeRejectsShortSeries(t *testing.T) {
	if _, err := Compute(make([]float64, MinCloses-1)); err == nil {
		t.Fatal("expected error for short series")
	}
}
