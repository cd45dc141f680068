package status

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/events"
)

// Snapshot is the dashboard-facing view of the controller, overwritten
// after every cycle. Consumers only ever see the most recent one.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	State     string    `json:"state"`

	HasPosition bool             `json:"has_position"`
	EntryPrice  *decimal.Decimal `json:"entry_price,omitempty"`
	EntryTime   *time.Time       `json:"entry_time,omitempty"`

	PendingOrderID   string           `json:"pending_order_id,omitempty"`
	PendingOrderSide string           `json:"pending_order_side,omitempty"`
	CurrentPrice     *decimal.Decimal `json:"current_price,omitempty"`
	UnrealizedPnL    *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	TakeProfitPrice  *decimal.Decimal `json:"take_profit_price,omitempty"`
	StopLossPrice    *decimal.Decimal `json:"stop_loss_price,omitempty"`

	BaseBalance  *decimal.Decimal `json:"base_balance,omitempty"`
	QuoteBalance *decimal.Decimal `json:"quote_balance,omitempty"`

	LastAction    string  `json:"last_action"`
	CycleInterval float64 `json:"cycle_interval_seconds"`
}

// Store holds the latest snapshot with last-write-wins semantics and
// rebroadcasts each update on the event bus.
type Store struct {
	mu   sync.RWMutex
	last Snapshot
	set  bool
	bus  *events.Bus
}

// NewStore creates a store. bus may be nil when no live consumers exist.
func NewStore(bus *events.Bus) *Store {
	return &Store{bus: bus}
}

// Publish replaces the current snapshot.
func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	s.last = snap
	s.set = true
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.EventStatus, snap)
	}
}

// Latest returns the most recent snapshot and whether one has been
// published yet.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.set
}
