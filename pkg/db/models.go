package db

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// CycleRow is one audit row in cycle_log; one per controller cycle.
// All fields are always present, NULL where semantically absent.
type CycleRow struct {
	ID           int64
	Timestamp    time.Time
	Action       string
	Symbol       string
	ExecPrice    decimal.NullDecimal
	ExecQty      decimal.NullDecimal
	QuoteCost    decimal.NullDecimal
	AISignal     sql.NullString
	AIReply      sql.NullString
	HasPosition  bool
	EntryPrice   decimal.NullDecimal
	BaseBalance  decimal.NullDecimal
	QuoteBalance decimal.NullDecimal
	RealizedPnL  decimal.NullDecimal
	OpenOrderID  sql.NullString
	Notes        sql.NullString
}
