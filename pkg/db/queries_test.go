package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func nd(s string) decimal.NullDecimal {
	d, _ := decimal.NewFromString(s)
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func TestInsertAndRecentCycles(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []CycleRow{
		{
			Timestamp:   base,
			Action:      "NO_ENTRY_PREFILTER",
			Symbol:      "BTCUSDT",
			HasPosition: false,
		},
		{
			Timestamp:    base.Add(time.Minute),
			Action:       "BUY_ORDER_PLACED",
			Symbol:       "BTCUSDT",
			ExecPrice:    nd("29970.0"),
			ExecQty:      nd("0.0002"),
			AISignal:     sql.NullString{String: "BUY", Valid: true},
			HasPosition:  false,
			OpenOrderID:  sql.NullString{String: "12345", Valid: true},
			BaseBalance:  nd("0.001"),
			QuoteBalance: nd("500.25"),
		},
		{
			Timestamp:   base.Add(2 * time.Minute),
			Action:      "SELL_FILLED",
			Symbol:      "BTCUSDT",
			ExecPrice:   nd("30600"),
			ExecQty:     nd("0.0002"),
			QuoteCost:   nd("6.12"),
			RealizedPnL: nd("0.12"),
			HasPosition: false,
		},
	}
	for _, r := range rows {
		if err := database.InsertCycle(ctx, r); err != nil {
			t.Fatalf("InsertCycle: %v", err)
		}
	}

	got, err := database.RecentCycles(ctx, 2)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	// Most recent first.
	if got[0].Action != "SELL_FILLED" {
		t.Errorf("first row action = %q, want SELL_FILLED", got[0].Action)
	}
	if !got[0].RealizedPnL.Valid || !got[0].RealizedPnL.Decimal.Equal(decimal.RequireFromString("0.12")) {
		t.Errorf("realized pnl = %+v, want 0.12", got[0].RealizedPnL)
	}
	if got[1].Action != "BUY_ORDER_PLACED" {
		t.Errorf("second row action = %q, want BUY_ORDER_PLACED", got[1].Action)
	}
	if !got[1].ExecPrice.Valid || got[1].ExecPrice.Decimal.String() != "29970" {
		t.Errorf("exec price = %+v, want 29970", got[1].ExecPrice)
	}

	n, err := database.CountCycles(ctx)
	if err != nil {
		t.Fatalf("CountCycles: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestRecentCyclesNullFields(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	// Error cycles carry only timestamp, action, symbol, notes.
	row := CycleRow{
		Timestamp: time.Now().UTC(),
		Action:    "CATASTROPHIC_ERROR",
		Symbol:    "BTCUSDT",
		Notes:     sql.NullString{String: "boom", Valid: true},
	}
	if err := database.InsertCycle(ctx, row); err != nil {
		t.Fatalf("InsertCycle: %v", err)
	}

	got, err := database.RecentCycles(ctx, 10)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	r := got[0]
	if r.ExecPrice.Valid || r.ExecQty.Valid || r.EntryPrice.Valid || r.RealizedPnL.Valid {
		t.Errorf("numeric fields should be NULL for an error cycle: %+v", r)
	}
	if r.Notes.String != "boom" {
		t.Errorf("notes = %q, want boom", r.Notes.String)
	}
}
