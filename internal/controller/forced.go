package controller

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/internal/command"
	"github.com/IsacDav66/Criptobot/internal/market"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// handleForced executes a manual override. The command was already
// consumed from the slot; when its precondition does not hold it is
// dropped with a note rather than queued. Returns whether the command
// fired: a fired command replaces the normal entry/exit evaluation for
// the cycle, a dropped one lets it proceed.
func (c *Controller) handleForced(ctx context.Context, cmd command.Forced, snap market.Snapshot, rec *audit.Record) bool {
	log.Printf("controller: forced command %s received in state %s", cmd, c.state())

	switch cmd {
	case command.ForceBuy:
		if c.state() != StateFlat {
			c.dropForced(cmd, rec)
			return false
		}
		c.forcedBuy(ctx, snap, rec)

	case command.ForceSell:
		if c.state() != StateHolding {
			c.dropForced(cmd, rec)
			return false
		}
		addNote(rec, "forced sell at market")
		c.placeSell(ctx, rec, common.OrderTypeMarket, decimal.Zero, audit.ActionForcedSell, "forced")
		if rec.Action == audit.ActionSellFilled {
			rec.Action = audit.ActionForcedSell
		}

	case command.ForceConsult:
		if c.state() != StateFlat {
			c.dropForced(cmd, rec)
			return false
		}
		addNote(rec, "forced AI consult, pre-filter bypassed")
		c.evaluateEntry(ctx, snap, rec, true)

	default:
		c.dropForced(cmd, rec)
		return false
	}
	return true
}

// forcedBuy submits an immediate market BUY of the configured size.
func (c *Controller) forcedBuy(ctx context.Context, snap market.Snapshot, rec *audit.Record) {
	qty := c.symbolRules.AlignQty(c.cfg.TradeSize)
	if reason := c.validateOrder(snap.Close, qty); reason != "" {
		rec.Action = audit.ActionEntryRejected
		addNote(rec, fmt.Sprintf("forced buy not submitted: %s", reason))
		log.Printf("controller: forced BUY rejected: %s", reason)
		return
	}

	ack, err := c.submit(ctx, common.OrderRequest{
		Symbol: c.cfg.Symbol,
		Side:   common.SideBuy,
		Type:   common.OrderTypeMarket,
		Qty:    qty,
	})
	if err != nil {
		rec.Action = audit.ActionOrderFailed
		addNote(rec, fmt.Sprintf("forced BUY submit failed: %s", truncate(err.Error(), maxErrorNoteLen)))
		log.Printf("controller: forced BUY submit failed: %v", err)
		return
	}

	rec.OpenOrderID = ack.OrderID
	addNote(rec, "forced buy at market")
	if ack.Status == common.StatusFilled {
		// snap.Close is the reference price when the fill report lacks
		// executed quantities.
		c.applyFill(&PendingOrder{ID: ack.OrderID, Side: common.SideBuy, Price: snap.Close, Qty: qty, PlacedAt: c.now()},
			common.OrderState{Status: ack.Status, ExecutedQty: ack.ExecutedQty, CumQuoteQty: ack.CumQuoteQty}, rec)
		rec.Action = audit.ActionForcedBuy
		return
	}

	c.pending = &PendingOrder{
		ID:       ack.OrderID,
		Side:     common.SideBuy,
		Price:    snap.Close,
		Qty:      qty,
		PlacedAt: c.now(),
	}
	rec.Action = audit.ActionForcedBuy
	log.Printf("controller: forced market BUY %s placed, qty %s", ack.OrderID, qty)
}

// dropForced notes an inapplicable command. The command is already
// cleared from the slot; the cycle's normal evaluation still runs and
// supplies the recorded action.
func (c *Controller) dropForced(cmd command.Forced, rec *audit.Record) {
	addNote(rec, fmt.Sprintf("precondition unmet: %s dropped in state %s", cmd, c.state()))
	log.Printf("controller: %s dropped, precondition unmet in state %s", cmd, c.state())
}
