package controller

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/internal/monitor"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// advancePending moves the order lifecycle forward by one step: query the
// resting order, then apply fill, revert, or timeout-cancel. Runs at most
// once per cycle.
func (c *Controller) advancePending(ctx context.Context, rec *audit.Record) {
	p := c.pending
	rec.OpenOrderID = p.ID

	timer := monitor.NewTimer(c.metrics.ExchangeLatency)
	state, err := c.gateway.QueryOrder(ctx, c.cfg.Symbol, p.ID)
	timer.Stop()
	if err != nil {
		// Ambiguous order state: leave the pending order intact and
		// re-evaluate next cycle. Never assume filled or canceled.
		log.Printf("controller: query order %s failed: %v", p.ID, err)
		rec.Action = audit.ActionOrderWaiting
		addNote(rec, fmt.Sprintf("order query failed: %s", truncate(err.Error(), maxErrorNoteLen)))
		return
	}

	switch {
	case state.Status == common.StatusFilled:
		c.applyFill(p, state, rec)

	case state.Status.Dead():
		// CANCELED/EXPIRED/REJECTED reverts to the pre-order state; the
		// position, if any, was never touched while the order rested.
		log.Printf("controller: order %s ended %s without filling", p.ID, state.Status)
		rec.Action = audit.ActionOrderReverted
		addNote(rec, fmt.Sprintf("order %s %s", p.ID, state.Status))
		c.pending = nil

	case c.now().Sub(p.PlacedAt) > c.cfg.OrderTimeout:
		c.cancelTimedOut(ctx, p, rec)

	default:
		rec.Action = audit.ActionOrderWaiting
		addNote(rec, fmt.Sprintf("order %s still %s, executed %s/%s",
			p.ID, state.Status, state.ExecutedQty, p.Qty))
	}
}

// applyFill settles a FILLED order: a BUY opens the position at the
// average fill price, a SELL closes it and realizes P&L.
func (c *Controller) applyFill(p *PendingOrder, state common.OrderState, rec *audit.Record) {
	avg := avgFillPrice(state, p.Price)
	qty := state.ExecutedQty
	cost := state.CumQuoteQty

	rec.ExecPrice = &avg
	rec.ExecQty = &qty
	rec.QuoteCost = &cost

	if p.Side == common.SideBuy {
		c.position = &Position{EntryPrice: avg, EntryTime: c.now()}
		c.pending = nil
		rec.Action = audit.ActionBuyFilled
		ep := avg
		rec.EntryPrice = &ep
		log.Printf("controller: BUY %s filled, entry price %s qty %s", p.ID, avg, qty)
		return
	}

	var pnl decimal.Decimal
	if c.position != nil {
		pnl = avg.Sub(c.position.EntryPrice).Mul(qty)
	}
	rec.RealizedPnL = &pnl
	c.position = nil
	c.pending = nil
	rec.Action = audit.ActionSellFilled
	log.Printf("controller: SELL %s filled at %s qty %s, realized P&L %s", p.ID, avg, qty, pnl)
}

// cancelTimedOut cancels an order that outlived the configured timeout.
// The pending order is discarded regardless of cancel success; a failed
// cancel is logged, never retried.
func (c *Controller) cancelTimedOut(ctx context.Context, p *PendingOrder, rec *audit.Record) {
	log.Printf("controller: order %s exceeded timeout %s, canceling", p.ID, c.cfg.OrderTimeout)
	if err := c.gateway.CancelOrder(ctx, c.cfg.Symbol, p.ID); err != nil {
		log.Printf("controller: cancel order %s failed: %v", p.ID, err)
		addNote(rec, fmt.Sprintf("cancel failed: %s", truncate(err.Error(), maxErrorNoteLen)))
	}
	rec.Action = audit.ActionOrderCanceled
	addNote(rec, fmt.Sprintf("%s order %s canceled after timeout", p.Side, p.ID))
	c.pending = nil
}

// avgFillPrice is cumulative quote value over executed quantity, falling
// back to the quoted price when nothing executed.
func avgFillPrice(state common.OrderState, quoted decimal.Decimal) decimal.Decimal {
	if state.ExecutedQty.IsPositive() {
		return state.CumQuoteQty.Div(state.ExecutedQty)
	}
	return quoted
}
