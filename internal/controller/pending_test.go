package controller

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

func pendingBuy(h *harness, placedAt time.Time) *PendingOrder {
	p := &PendingOrder{
		ID:       "201",
		Side:     common.SideBuy,
		Price:    d("29970"),
		Qty:      d("0.0002"),
		PlacedAt: placedAt,
	}
	h.c.pending = p
	return p
}

func TestPendingBuyFillOpensPosition(t *testing.T) {
	h := newHarness(t, quietSnapshot(30000))
	pendingBuy(h, h.clock.Add(-time.Minute))
	h.gw.queryState = common.OrderState{
		Status:      common.StatusFilled,
		ExecutedQty: d("0.0002"),
		CumQuoteQty: d("5.994"),
	}

	rec := h.runCycle(t)
	if rec.Action != audit.ActionBuyFilled {
		t.Errorf("action = %s", rec.Action)
	}
	if h.c.pending != nil {
		t.Error("pending order should be gone after fill")
	}
	if h.c.position == nil {
		t.Fatal("position expected")
	}
	if !h.c.position.EntryPrice.Equal(d("29970")) {
		t.Errorf("entry price = %s", h.c.position.EntryPrice)
	}
	if rec.ExecPrice == nil || !rec.ExecPrice.Equal(d("29970")) {
		t.Errorf("audit exec price = %v", rec.ExecPrice)
	}
}

func TestPendingFillZeroExecutedFallsBackToQuoted(t *testing.T) {
	h := newHarness(t, quietSnapshot(30000))
	pendingBuy(h, h.clock.Add(-time.Minute))
	h.gw.queryState = common.OrderState{Status: common.StatusFilled}

	h.runCycle(t)
	if h.c.position == nil {
		t.Fatal("position expected")
	}
	if !h.c.position.EntryPrice.Equal(d("29970")) {
		t.Errorf("entry price = %s, want quoted 29970", h.c.position.EntryPrice)
	}
}

func TestPendingBuyDeadStatusRevertsToFlat(t *testing.T) {
	for _, st := range []common.OrderStatus{common.StatusCanceled, common.StatusExpired, common.StatusRejected} {
		t.Run(string(st), func(t *testing.T) {
			h := newHarness(t, quietSnapshot(30000))
			pendingBuy(h, h.clock.Add(-time.Minute))
			h.gw.queryState = common.OrderState{Status: st}

			rec := h.runCycle(t)
			if rec.Action != audit.ActionOrderReverted {
				t.Errorf("action = %s", rec.Action)
			}
			if h.c.pending != nil || h.c.position != nil {
				t.Error("dead BUY must revert to FLAT")
			}
		})
	}
}

func TestPendingSellDeadStatusKeepsPosition(t *testing.T) {
	h := newHarness(t, quietSnapshot(30000))
	h.c.position = &Position{EntryPrice: d("30000"), EntryTime: h.clock.Add(-time.Hour)}
	h.c.pending = &PendingOrder{
		ID:       "202",
		Side:     common.SideSell,
		Price:    d("30600"),
		Qty:      d("0.0002"),
		PlacedAt: h.clock.Add(-time.Minute),
	}
	h.gw.queryState = common.OrderState{Status: common.StatusCanceled}

	h.runCycle(t)
	if h.c.pending != nil {
		t.Error("pending order should be gone")
	}
	if h.c.position == nil {
		t.Error("dead SELL must revert to HOLDING, position intact")
	}
}

func TestPendingTimeoutCancelsAndReverts(t *testing.T) {
	h := newHarness(t, quietSnapshot(30000))
	// Placed 16 minutes ago against a 15 minute timeout.
	pendingBuy(h, h.clock.Add(-16*time.Minute))
	h.gw.queryState = common.OrderState{Status: common.StatusNew}

	rec := h.runCycle(t)
	if rec.Action != audit.ActionOrderCanceled {
		t.Errorf("action = %s, want %s", rec.Action, audit.ActionOrderCanceled)
	}
	if len(h.gw.canceled) != 1 || h.gw.canceled[0] != "201" {
		t.Errorf("canceled = %v, want [201]", h.gw.canceled)
	}
	if h.c.pending != nil {
		t.Error("timed-out order must revert to FLAT")
	}
}

func TestPendingTimeoutCancelFailureStillReverts(t *testing.T) {
	h := newHarness(t, quietSnapshot(30000))
	pendingBuy(h, h.clock.Add(-16*time.Minute))
	h.gw.queryState = common.OrderState{Status: common.StatusNew}
	h.gw.cancelErr = errors.New("order not found")

	rec := h.runCycle(t)
	if rec.Action != audit.ActionOrderCanceled {
		t.Errorf("action = %s", rec.Action)
	}
	if !strings.Contains(rec.Notes, "cancel failed") {
		t.Errorf("notes = %q", rec.Notes)
	}
	if h.c.pending != nil {
		t.Error("revert happens regardless of cancel success")
	}
}

func TestPendingStillOpenWithinTimeoutWaits(t *testing.T) {
	h := newHarness(t, quietSnapshot(30000))
	pendingBuy(h, h.clock.Add(-5*time.Minute))
	h.gw.queryState = common.OrderState{Status: common.StatusPartial, ExecutedQty: d("0.0001")}

	rec := h.runCycle(t)
	if rec.Action != audit.ActionOrderWaiting {
		t.Errorf("action = %s", rec.Action)
	}
	if h.c.pending == nil {
		t.Error("order must stay pending while working")
	}
	if len(h.gw.canceled) != 0 {
		t.Error("no cancel before timeout")
	}
}

func TestPendingQueryFailureLeavesOrderIntact(t *testing.T) {
	h := newHarness(t, quietSnapshot(30000))
	pendingBuy(h, h.clock.Add(-16*time.Minute))
	h.gw.queryErr = errors.New("timeout")

	rec := h.runCycle(t)
	if rec.Action != audit.ActionOrderWaiting {
		t.Errorf("action = %s", rec.Action)
	}
	if h.c.pending == nil {
		t.Error("ambiguous order state must never be assumed resolved")
	}
	if len(h.gw.canceled) != 0 {
		t.Error("no cancel on an unconfirmed order state")
	}
}

func TestPendingSellFillRealizesPnL(t *testing.T) {
	tests := []struct {
		name     string
		cumQuote string
		wantPnL  string
	}{
		{"gain", "6.12", "0.12"},  // avg 30600, entry 30000, qty 0.0002
		{"loss", "5.92", "-0.08"}, // avg 29600
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, quietSnapshot(30000))
			h.c.position = &Position{EntryPrice: d("30000"), EntryTime: h.clock.Add(-time.Hour)}
			h.c.pending = &PendingOrder{
				ID:       "203",
				Side:     common.SideSell,
				Price:    d("30600"),
				Qty:      d("0.0002"),
				PlacedAt: h.clock.Add(-time.Minute),
			}
			h.gw.queryState = common.OrderState{
				Status:      common.StatusFilled,
				ExecutedQty: d("0.0002"),
				CumQuoteQty: d(tt.cumQuote),
			}

			rec := h.runCycle(t)
			if rec.Action != audit.ActionSellFilled {
				t.Errorf("action = %s", rec.Action)
			}
			if rec.RealizedPnL == nil || !rec.RealizedPnL.Equal(d(tt.wantPnL)) {
				t.Errorf("realized P&L = %v, want %s", rec.RealizedPnL, tt.wantPnL)
			}
			if h.c.position != nil || h.c.pending != nil {
				t.Error("state must be FLAT after the SELL fills")
			}
		})
	}
}
