package controller

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/internal/market"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// evaluateExit applies the rule-based TP/SL check while holding. No AI is
// consulted on the way out.
func (c *Controller) evaluateExit(ctx context.Context, snap market.Snapshot, rec *audit.Record) {
	entry := c.position.EntryPrice
	targetTP := c.takeProfitPrice(entry)
	targetSL := c.stopLossPrice(entry)
	px := snap.Close

	switch {
	case px.GreaterThanOrEqual(targetTP):
		// Sell at the TP level itself, not the (higher) market price, so
		// the captured profit matches the configured target.
		log.Printf("controller: close %s reached TP target %s", px, targetTP)
		c.placeSell(ctx, rec, common.OrderTypeLimit, c.symbolRules.AlignPrice(targetTP),
			audit.ActionTakeProfitPlaced, "take profit")

	case px.LessThanOrEqual(targetSL):
		// Market order: immediate exit beats price certainty on the way
		// down. The close is recorded as the intended reference price.
		log.Printf("controller: close %s breached SL target %s", px, targetSL)
		c.placeSell(ctx, rec, common.OrderTypeMarket, decimal.Zero,
			audit.ActionStopLossPlaced, "stop loss")

	default:
		rec.Action = audit.ActionHoldPosition
	}
}

// placeSell submits an exit order for min(trade size, free base balance).
// A zero sellable quantity means the exchange-side inventory is gone, so
// the local position is force-cleared instead of selling.
func (c *Controller) placeSell(ctx context.Context, rec *audit.Record, typ common.OrderType, price decimal.Decimal, placedAction, tag string) {
	qty, ok := c.sellableQty(ctx, rec)
	if !ok {
		return
	}

	// Market sells carry a zero price, which skips the notional check.
	if reason := c.validateOrder(price, qty); reason != "" {
		rec.Action = audit.ActionHoldPosition
		addNote(rec, fmt.Sprintf("%s sell not submitted: %s", tag, reason))
		log.Printf("controller: %s sell skipped: %s", tag, reason)
		return
	}

	req := common.OrderRequest{
		Symbol: c.cfg.Symbol,
		Side:   common.SideSell,
		Type:   typ,
		Qty:    qty,
	}
	if typ == common.OrderTypeLimit {
		req.Price = price
		req.TimeInForce = common.TIFGTC
	}

	ack, err := c.submit(ctx, req)
	if err != nil {
		rec.Action = audit.ActionOrderFailed
		addNote(rec, fmt.Sprintf("%s SELL submit failed: %s", tag, truncate(err.Error(), maxErrorNoteLen)))
		log.Printf("controller: %s SELL submit failed: %v", tag, err)
		return
	}

	rec.OpenOrderID = ack.OrderID
	addNote(rec, tag)
	if ack.Status == common.StatusFilled {
		ref := price
		if ref.IsZero() && c.lastClose != nil {
			ref = *c.lastClose
		}
		c.applyFill(&PendingOrder{ID: ack.OrderID, Side: common.SideSell, Price: ref, Qty: qty, PlacedAt: c.now()},
			common.OrderState{Status: ack.Status, ExecutedQty: ack.ExecutedQty, CumQuoteQty: ack.CumQuoteQty}, rec)
		return
	}

	c.pending = &PendingOrder{
		ID:       ack.OrderID,
		Side:     common.SideSell,
		Price:    price,
		Qty:      qty,
		PlacedAt: c.now(),
	}
	rec.Action = placedAction
	if price.IsPositive() {
		rec.ExecPrice = &price
	}
	qtyCopy := qty
	rec.ExecQty = &qtyCopy
	log.Printf("controller: %s SELL %s placed, qty %s", tag, ack.OrderID, qty)
}

// sellableQty returns min(configured trade size, free base balance),
// aligned to the lot step. ok=false means the position was force-cleared.
func (c *Controller) sellableQty(ctx context.Context, rec *audit.Record) (decimal.Decimal, bool) {
	free, err := c.gateway.GetFreeBalance(ctx, c.cfg.BaseAsset)
	if err != nil {
		log.Printf("controller: %s balance fetch failed before sell: %v", c.cfg.BaseAsset, err)
		rec.Action = audit.ActionHoldPosition
		addNote(rec, fmt.Sprintf("sell deferred, balance fetch failed: %s", truncate(err.Error(), maxErrorNoteLen)))
		return decimal.Zero, false
	}

	qty := c.cfg.TradeSize
	if free.LessThan(qty) {
		qty = free
	}
	qty = c.symbolRules.AlignQty(qty)

	if !qty.IsPositive() {
		// Inventory left the account outside the bot (withdrawal, manual
		// sale). Keeping the position would make every later cycle try
		// to exit a holding that no longer exists.
		log.Printf("controller: no %s left to sell, clearing position", c.cfg.BaseAsset)
		rec.Action = audit.ActionExitNoBalance
		addNote(rec, fmt.Sprintf("free %s balance %s, position cleared locally", c.cfg.BaseAsset, free))
		c.position = nil
		return decimal.Zero, false
	}
	return qty, true
}
