package controller

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/internal/market"
	"github.com/IsacDav66/Criptobot/internal/monitor"
	"github.com/IsacDav66/Criptobot/internal/signal"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// evaluateEntry runs the two-stage entry gate: a local technical
// pre-filter, then an AI consultation only when the pre-filter passes.
// bypassPrefilter is set by a forced consult.
func (c *Controller) evaluateEntry(ctx context.Context, snap market.Snapshot, rec *audit.Record, bypassPrefilter bool) {
	ind := snap.Indicators

	if !bypassPrefilter {
		pass := ind.RSI14 < c.rules.RSIOversold &&
			ind.PrevClose < ind.PrevSMA20 &&
			ind.Close > ind.SMA20
		if !pass {
			rec.Action = audit.ActionNoEntryPrefilter
			return
		}
		log.Printf("controller: pre-filter passed (RSI %.2f, close %.2f crossed above SMA20 %.2f)",
			ind.RSI14, ind.Close, ind.SMA20)
	}

	decision, raw := c.consultAI(ctx, snap, rec, "FLAT, no open position; evaluating a possible entry.")
	rec.AISignal = string(decision)
	rec.AIReply = raw
	if decision != signal.Buy {
		rec.Action = audit.ActionNoEntryAIDeclined
		return
	}

	c.placeLimitBuy(ctx, snap, rec)
}

// consultAI wraps the signal service call; transport failures degrade to
// HOLD so the cycle completes.
func (c *Controller) consultAI(ctx context.Context, snap market.Snapshot, rec *audit.Record, framing string) (signal.Decision, string) {
	ind := snap.Indicators
	req := signal.Consult{
		Summary:       framing,
		Price:         ind.Close,
		HasIndicators: true,
		RSI14:         ind.RSI14,
		SMA20:         ind.SMA20,
		SMA50:         ind.SMA50,
		CandleDigest:  snap.CandleDigest,
	}

	timer := monitor.NewTimer(c.metrics.AILatency)
	decision, raw, err := c.signals.GetSignal(ctx, req)
	timer.Stop()
	c.metrics.IncrementAIConsults()
	if err != nil {
		log.Printf("controller: AI consult failed: %v", err)
		addNote(rec, fmt.Sprintf("AI consult failed: %s", truncate(err.Error(), maxErrorNoteLen)))
		return signal.Hold, raw
	}
	return decision, raw
}

// placeLimitBuy submits the entry order: a limit BUY slightly below the
// current close, sized at the configured trade quantity.
func (c *Controller) placeLimitBuy(ctx context.Context, snap market.Snapshot, rec *audit.Record) {
	price := c.symbolRules.AlignPrice(snap.Close.Mul(c.rules.PriceOffset))
	qty := c.symbolRules.AlignQty(c.cfg.TradeSize)

	if reason := c.validateOrder(price, qty); reason != "" {
		rec.Action = audit.ActionEntryRejected
		addNote(rec, reason)
		log.Printf("controller: entry rejected: %s", reason)
		return
	}

	ack, err := c.submit(ctx, common.OrderRequest{
		Symbol:      c.cfg.Symbol,
		Side:        common.SideBuy,
		Type:        common.OrderTypeLimit,
		Qty:         qty,
		Price:       price,
		TimeInForce: common.TIFGTC,
	})
	if err != nil {
		rec.Action = audit.ActionOrderFailed
		addNote(rec, fmt.Sprintf("BUY submit failed: %s", truncate(err.Error(), maxErrorNoteLen)))
		log.Printf("controller: BUY submit failed: %v", err)
		return
	}

	rec.OpenOrderID = ack.OrderID
	if ack.Status == common.StatusFilled {
		c.applyFill(&PendingOrder{ID: ack.OrderID, Side: common.SideBuy, Price: price, Qty: qty, PlacedAt: c.now()},
			common.OrderState{Status: ack.Status, ExecutedQty: ack.ExecutedQty, CumQuoteQty: ack.CumQuoteQty}, rec)
		return
	}

	c.pending = &PendingOrder{
		ID:       ack.OrderID,
		Side:     common.SideBuy,
		Price:    price,
		Qty:      qty,
		PlacedAt: c.now(),
	}
	rec.Action = audit.ActionBuyOrderPlaced
	rec.ExecPrice = &price
	rec.ExecQty = &qty
	log.Printf("controller: limit BUY %s placed at %s qty %s", ack.OrderID, price, qty)
}

// validateOrder applies the exchange minimums before submission. Returns
// an empty string when the order is acceptable.
func (c *Controller) validateOrder(price, qty decimal.Decimal) string {
	if !qty.IsPositive() {
		return "quantity rounds to zero"
	}
	if c.symbolRules.MinQty.IsPositive() && qty.LessThan(c.symbolRules.MinQty) {
		return fmt.Sprintf("quantity %s below exchange minimum %s", qty, c.symbolRules.MinQty)
	}
	if c.symbolRules.MinNotional.IsPositive() && price.IsPositive() &&
		price.Mul(qty).LessThan(c.symbolRules.MinNotional) {
		return fmt.Sprintf("notional %s below exchange minimum %s", price.Mul(qty), c.symbolRules.MinNotional)
	}
	return ""
}

// submit sends the order and counts it.
func (c *Controller) submit(ctx context.Context, req common.OrderRequest) (common.OrderAck, error) {
	timer := monitor.NewTimer(c.metrics.ExchangeLatency)
	defer timer.Stop()

	ack, err := c.gateway.SubmitOrder(ctx, req)
	if err != nil {
		return common.OrderAck{}, err
	}
	c.metrics.IncrementOrders()
	return ack, nil
}
