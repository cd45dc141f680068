// Package controller implements the trading cycle: a single sequential
// loop that resolves manual overrides, drives the order lifecycle,
// evaluates entry and exit rules, and emits one audit record and one
// status snapshot per cycle.
package controller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/internal/command"
	"github.com/IsacDav66/Criptobot/internal/market"
	"github.com/IsacDav66/Criptobot/internal/monitor"
	"github.com/IsacDav66/Criptobot/internal/signal"
	"github.com/IsacDav66/Criptobot/internal/status"
	"github.com/IsacDav66/Criptobot/pkg/config"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// maxErrorNoteLen bounds the error text stored in audit notes.
const maxErrorNoteLen = 300

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Controller owns all trading state. Exactly one instance runs per
// process; everything it touches is private to its loop, so no locking
// is needed around Position or PendingOrder.
type Controller struct {
	cfg      *config.Config
	rules    Rules
	gateway  common.Gateway
	markets  market.Provider
	signals  signal.Service
	commands *command.Slot
	sink     audit.Sink
	statuses *status.Store
	metrics  *monitor.Metrics

	symbolRules common.SymbolRules

	position *Position
	pending  *PendingOrder

	lastClose    *decimal.Decimal
	baseBalance  *decimal.Decimal
	quoteBalance *decimal.Decimal

	// injectable clock for timeout tests
	now func() time.Time
}

// New wires the controller. Call Init before Run.
func New(
	cfg *config.Config,
	rules Rules,
	gateway common.Gateway,
	markets market.Provider,
	signals signal.Service,
	commands *command.Slot,
	sink audit.Sink,
	statuses *status.Store,
	metrics *monitor.Metrics,
) *Controller {
	return &Controller{
		cfg:      cfg,
		rules:    rules,
		gateway:  gateway,
		markets:  markets,
		signals:  signals,
		commands: commands,
		sink:     sink,
		statuses: statuses,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Init fetches and caches the symbol precision rules. Failure here is a
// startup failure: the caller must abort rather than trade unaligned.
func (c *Controller) Init(ctx context.Context) error {
	rules, err := c.gateway.GetSymbolRules(ctx, c.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("fetch symbol rules for %s: %w", c.cfg.Symbol, err)
	}
	c.symbolRules = rules
	log.Printf("controller: symbol rules for %s: tick=%s step=%s minQty=%s minNotional=%s",
		rules.Symbol, rules.PriceTick, rules.QtyStep, rules.MinQty, rules.MinNotional)
	return nil
}

// Run executes cycles until ctx is canceled. Cancellation is cooperative
// and only observed between cycles.
func (c *Controller) Run(ctx context.Context) {
	log.Printf("controller: loop started, symbol=%s interval=%s timeout=%s",
		c.cfg.Symbol, c.cfg.CheckInterval, c.cfg.OrderTimeout)

	for {
		backoff := c.RunCycle(ctx)

		sleep := c.cfg.CheckInterval
		if backoff {
			sleep += c.cfg.ErrorBackoff
			log.Printf("controller: backing off for %s after failed cycle", sleep)
		}
		select {
		case <-ctx.Done():
			log.Println("controller: loop stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// RunCycle executes exactly one cycle and reports whether the loop should
// back off. Every cycle, including a failed one, emits one audit record
// and one status snapshot.
func (c *Controller) RunCycle(ctx context.Context) (backoff bool) {
	timer := monitor.NewTimer(c.metrics.CycleLatency)
	defer timer.Stop()

	rec := audit.Record{Timestamp: c.now().UTC(), Symbol: c.cfg.Symbol}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return c.cycle(ctx, &rec)
	}()
	if err != nil {
		log.Printf("controller: cycle failed: %v", err)
		rec.Action = audit.ActionCatastrophic
		addNote(&rec, truncate(err.Error(), maxErrorNoteLen))
		c.metrics.IncrementErrors()
		backoff = true
	}

	rec.HasPosition = c.position != nil
	if c.position != nil && rec.EntryPrice == nil {
		ep := c.position.EntryPrice
		rec.EntryPrice = &ep
	}
	if c.pending != nil && rec.OpenOrderID == "" {
		rec.OpenOrderID = c.pending.ID
	}
	rec.BaseBalance = c.baseBalance
	rec.QuoteBalance = c.quoteBalance

	c.sink.Append(rec)
	c.statuses.Publish(c.buildStatus(rec))
	c.metrics.IncrementCycles()
	return backoff
}

// cycle runs steps one through six. rec accumulates the audit fields as
// each step contributes them.
func (c *Controller) cycle(ctx context.Context, rec *audit.Record) error {
	c.refreshBalances(ctx)

	snap, err := c.markets.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("market snapshot: %w", err)
	}
	px := snap.Close
	c.lastClose = &px

	cmd := c.commands.Take()
	if cmd == command.Clear {
		addNote(rec, "forced command cleared")
		cmd = command.None
	}

	// An actionable forced command replaces the normal evaluation for
	// this cycle. A dropped one only leaves a note; the cycle still has
	// to advance a pending order or evaluate entry/exit, otherwise a
	// timed-out order would sit an extra interval.
	handled := false
	if cmd != command.None {
		handled = c.handleForced(ctx, cmd, snap, rec)
	}

	switch {
	case handled:
	case c.pending != nil:
		c.advancePending(ctx, rec)
	case c.position != nil:
		c.evaluateExit(ctx, snap, rec)
	default:
		c.evaluateEntry(ctx, snap, rec, false)
	}

	c.refreshBalances(ctx)
	return nil
}

// refreshBalances updates the cached free balances. Failures are logged
// and leave the previous values in place; they never fail the cycle.
func (c *Controller) refreshBalances(ctx context.Context) {
	timer := monitor.NewTimer(c.metrics.ExchangeLatency)
	defer timer.Stop()

	if base, err := c.gateway.GetFreeBalance(ctx, c.cfg.BaseAsset); err != nil {
		log.Printf("controller: %s balance fetch failed: %v", c.cfg.BaseAsset, err)
	} else {
		c.baseBalance = &base
	}
	if quote, err := c.gateway.GetFreeBalance(ctx, c.cfg.QuoteAsset); err != nil {
		log.Printf("controller: %s balance fetch failed: %v", c.cfg.QuoteAsset, err)
	} else {
		c.quoteBalance = &quote
	}
}

func (c *Controller) buildStatus(rec audit.Record) status.Snapshot {
	snap := status.Snapshot{
		Timestamp:     c.now().UTC(),
		Symbol:        c.cfg.Symbol,
		State:         string(c.state()),
		HasPosition:   c.position != nil,
		CurrentPrice:  c.lastClose,
		BaseBalance:   c.baseBalance,
		QuoteBalance:  c.quoteBalance,
		LastAction:    rec.Action,
		CycleInterval: c.cfg.CheckInterval.Seconds(),
	}
	if c.position != nil {
		ep := c.position.EntryPrice
		et := c.position.EntryTime
		tp := c.takeProfitPrice(ep)
		sl := c.stopLossPrice(ep)
		snap.EntryPrice = &ep
		snap.EntryTime = &et
		snap.TakeProfitPrice = &tp
		snap.StopLossPrice = &sl
		if c.lastClose != nil {
			pnl := c.lastClose.Sub(ep).Mul(c.cfg.TradeSize)
			snap.UnrealizedPnL = &pnl
		}
	}
	if c.pending != nil {
		snap.PendingOrderID = c.pending.ID
		snap.PendingOrderSide = string(c.pending.Side)
	}
	return snap
}

func (c *Controller) takeProfitPrice(entry decimal.Decimal) decimal.Decimal {
	return entry.Mul(one.Add(c.rules.TakeProfitPct.Div(hundred)))
}

func (c *Controller) stopLossPrice(entry decimal.Decimal) decimal.Decimal {
	return entry.Mul(one.Sub(c.rules.StopLossPct.Div(hundred)))
}

func addNote(rec *audit.Record, note string) {
	if note == "" {
		return
	}
	if rec.Notes == "" {
		rec.Notes = note
		return
	}
	rec.Notes += "; " + note
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
