package audit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action names the outcome of a single trading cycle. Exactly one action
// is recorded per cycle.
const (
	ActionNoEntryPrefilter  = "NO_ENTRY_PREFILTER"
	ActionNoEntryAIDeclined = "NO_ENTRY_AI_DECLINED"
	ActionEntryRejected     = "ENTRY_REJECTED"
	ActionOrderFailed       = "ORDER_SUBMIT_FAILED"
	ActionBuyOrderPlaced    = "BUY_ORDER_PLACED"
	ActionBuyFilled         = "BUY_FILLED"
	ActionTakeProfitPlaced  = "TAKE_PROFIT_SELL_PLACED"
	ActionStopLossPlaced    = "STOP_LOSS_SELL_PLACED"
	ActionSellFilled        = "SELL_FILLED"
	ActionHoldPosition      = "HOLD_POSITION"
	ActionExitNoBalance     = "EXIT_NO_BALANCE"
	ActionOrderWaiting      = "ORDER_PENDING_WAIT"
	ActionOrderCanceled     = "ORDER_CANCELED_TIMEOUT"
	ActionOrderReverted     = "ORDER_REVERTED"
	ActionForcedBuy         = "FORCED_BUY"
	ActionForcedSell        = "FORCED_SELL"
	ActionCatastrophic      = "CATASTROPHIC_ERROR"
)

// Record is one cycle's audit entry. Numeric fields use pointers so that
// "not applicable this cycle" is distinguishable from zero at the sink.
type Record struct {
	Timestamp    time.Time
	Action       string
	Symbol       string
	ExecPrice    *decimal.Decimal
	ExecQty      *decimal.Decimal
	QuoteCost    *decimal.Decimal
	AISignal     string
	AIReply      string
	HasPosition  bool
	EntryPrice   *decimal.Decimal
	BaseBalance  *decimal.Decimal
	QuoteBalance *decimal.Decimal
	RealizedPnL  *decimal.Decimal
	OpenOrderID  string
	Notes        string
}

// Sink receives one Record per cycle. Implementations must never block the
// trading loop on failure; errors are logged and dropped.
type Sink interface {
	Append(rec Record)
}
