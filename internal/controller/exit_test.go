package controller

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

func holding(h *harness, entry string) {
	h.c.position = &Position{EntryPrice: d(entry), EntryTime: h.clock.Add(-time.Hour)}
}

func TestTakeProfitPlacesLimitSellAtTarget(t *testing.T) {
	// Entry 30000, TP 2% -> 30600; close 30700 is beyond the target.
	h := newHarness(t, quietSnapshot(30700))
	holding(h, "30000")
	h.gw.submitAck = common.OrderAck{OrderID: "301", Status: common.StatusNew}

	rec := h.runCycle(t)

	if len(h.gw.submitted) != 1 {
		t.Fatalf("submitted %d orders", len(h.gw.submitted))
	}
	req := h.gw.submitted[0]
	if req.Side != common.SideSell || req.Type != common.OrderTypeLimit {
		t.Errorf("order = %s %s, want SELL LIMIT", req.Side, req.Type)
	}
	if !req.Price.Equal(d("30600")) {
		t.Errorf("price = %s, want TP target 30600, not the market price", req.Price)
	}
	if !req.Qty.Equal(d("0.0002")) {
		t.Errorf("qty = %s", req.Qty)
	}
	if rec.Action != audit.ActionTakeProfitPlaced {
		t.Errorf("action = %s", rec.Action)
	}
	if h.c.pending == nil || h.c.pending.Side != common.SideSell {
		t.Fatal("pending SELL expected")
	}
	if h.c.position == nil {
		t.Error("position stays until the SELL fills")
	}
}

func TestStopLossPlacesMarketSell(t *testing.T) {
	// Entry 30000, SL 1% -> 29700; close 29600 breaches it.
	h := newHarness(t, quietSnapshot(29600))
	holding(h, "30000")
	h.gw.submitAck = common.OrderAck{
		OrderID:     "302",
		Status:      common.StatusFilled,
		ExecutedQty: d("0.0002"),
		CumQuoteQty: d("5.92"),
	}

	rec := h.runCycle(t)

	if len(h.gw.submitted) != 1 {
		t.Fatalf("submitted %d orders", len(h.gw.submitted))
	}
	req := h.gw.submitted[0]
	if req.Side != common.SideSell || req.Type != common.OrderTypeMarket {
		t.Errorf("order = %s %s, want SELL MARKET", req.Side, req.Type)
	}
	if !req.Price.IsZero() {
		t.Errorf("market order carries no price, got %s", req.Price)
	}

	if rec.Action != audit.ActionSellFilled {
		t.Errorf("action = %s", rec.Action)
	}
	if rec.RealizedPnL == nil || !rec.RealizedPnL.Equal(d("-0.08")) {
		t.Errorf("realized P&L = %v, want -0.08", rec.RealizedPnL)
	}
	if h.c.position != nil {
		t.Error("position cleared after the stop-loss fill")
	}
}

func TestHoldBetweenTargets(t *testing.T) {
	h := newHarness(t, quietSnapshot(30100))
	holding(h, "30000")

	rec := h.runCycle(t)
	if rec.Action != audit.ActionHoldPosition {
		t.Errorf("action = %s", rec.Action)
	}
	if len(h.gw.submitted) != 0 {
		t.Error("no order between TP and SL")
	}

	snap, _ := h.store.Latest()
	if snap.TakeProfitPrice == nil || !snap.TakeProfitPrice.Equal(d("30600")) {
		t.Errorf("status TP = %v", snap.TakeProfitPrice)
	}
	if snap.StopLossPrice == nil || !snap.StopLossPrice.Equal(d("29700")) {
		t.Errorf("status SL = %v", snap.StopLossPrice)
	}
	if snap.UnrealizedPnL == nil || !snap.UnrealizedPnL.Equal(d("0.02")) {
		t.Errorf("status unrealized = %v, want 0.02", snap.UnrealizedPnL)
	}
}

func TestSellQuantityCappedByBalance(t *testing.T) {
	h := newHarness(t, quietSnapshot(30700))
	holding(h, "30000")
	h.gw.balances["BTC"] = d("0.00018")
	h.gw.submitAck = common.OrderAck{OrderID: "303", Status: common.StatusNew}

	h.runCycle(t)
	if len(h.gw.submitted) != 1 {
		t.Fatalf("submitted %d orders", len(h.gw.submitted))
	}
	if got := h.gw.submitted[0].Qty; !got.Equal(d("0.00018")) {
		t.Errorf("qty = %s, want free balance 0.00018", got)
	}
}

func TestExitNoBalanceClearsPositionLocally(t *testing.T) {
	h := newHarness(t, quietSnapshot(30700))
	holding(h, "30000")
	h.gw.balances["BTC"] = decimal.Zero

	rec := h.runCycle(t)
	if rec.Action != audit.ActionExitNoBalance {
		t.Errorf("action = %s, want %s", rec.Action, audit.ActionExitNoBalance)
	}
	if !strings.Contains(rec.Notes, "position cleared locally") {
		t.Errorf("notes = %q", rec.Notes)
	}
	if h.c.position != nil {
		t.Error("position must be force-cleared")
	}
	if len(h.gw.submitted) != 0 {
		t.Error("nothing to sell, nothing to submit")
	}
}
