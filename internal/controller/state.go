package controller

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// State is the controller's order-lifecycle state, derived from the
// Position/PendingOrder pair rather than stored separately.
type State string

const (
	StateFlat    State = "FLAT"
	StatePending State = "ORDER_PENDING"
	StateHolding State = "HOLDING"
)

// Position is the single open holding. It exists only between a filled
// BUY and a filled SELL.
type Position struct {
	EntryPrice decimal.Decimal
	EntryTime  time.Time
}

// PendingOrder is the single order resting on the exchange book. At most
// one exists at any time.
type PendingOrder struct {
	ID       string
	Side     common.Side
	Price    decimal.Decimal
	Qty      decimal.Decimal
	PlacedAt time.Time
}

// state derives the lifecycle state. A pending order takes precedence so
// a SELL awaiting fill reports ORDER_PENDING, not HOLDING.
func (c *Controller) state() State {
	switch {
	case c.pending != nil:
		return StatePending
	case c.position != nil:
		return StateHolding
	default:
		return StateFlat
	}
}

// Restore installs exchange-reconciled state before the first cycle.
func (c *Controller) Restore(pos *Position, pending *PendingOrder) {
	c.position = pos
	c.pending = pending
}
