package audit

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/events"
	"github.com/IsacDav66/Criptobot/pkg/db"
)

// DBSink writes audit records to the cycle_log table and broadcasts each
// record on the event bus for live dashboard consumers.
type DBSink struct {
	db  *db.Database
	bus *events.Bus
}

// NewDBSink creates the database-backed audit sink. bus may be nil.
func NewDBSink(database *db.Database, bus *events.Bus) *DBSink {
	return &DBSink{db: database, bus: bus}
}

// Append persists the record. Insert failures are logged and dropped so
// the trading cycle is never blocked on audit persistence.
func (s *DBSink) Append(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.db.InsertCycle(ctx, toRow(rec)); err != nil {
		log.Printf("audit: insert failed for action %s: %v", rec.Action, err)
	}
	if s.bus != nil {
		s.bus.Publish(events.EventCycle, rec)
	}
}

func toRow(rec Record) db.CycleRow {
	return db.CycleRow{
		Timestamp:    rec.Timestamp,
		Action:       rec.Action,
		Symbol:       rec.Symbol,
		ExecPrice:    nullDecimal(rec.ExecPrice),
		ExecQty:      nullDecimal(rec.ExecQty),
		QuoteCost:    nullDecimal(rec.QuoteCost),
		AISignal:     nullString(rec.AISignal),
		AIReply:      nullString(rec.AIReply),
		HasPosition:  rec.HasPosition,
		EntryPrice:   nullDecimal(rec.EntryPrice),
		BaseBalance:  nullDecimal(rec.BaseBalance),
		QuoteBalance: nullDecimal(rec.QuoteBalance),
		RealizedPnL:  nullDecimal(rec.RealizedPnL),
		OpenOrderID:  nullString(rec.OpenOrderID),
		Notes:        nullString(rec.Notes),
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
