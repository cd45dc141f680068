package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoDatabase is returned when queries run against an uninitialized handle.
var ErrNoDatabase = errors.New("database is not initialized")

// InsertCycle appends one audit row. Rows are append-only; nothing updates
// or deletes them.
func (d *Database) InsertCycle(ctx context.Context, row CycleRow) error {
	if d == nil || d.DB == nil {
		return ErrNoDatabase
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO cycle_log (
			ts, action, symbol,
			exec_price, exec_qty, quote_cost,
			ai_signal, ai_reply,
			has_position, entry_price,
			base_balance, quote_balance,
			realized_pnl, open_order_id, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Timestamp, row.Action, row.Symbol,
		row.ExecPrice, row.ExecQty, row.QuoteCost,
		row.AISignal, row.AIReply,
		row.HasPosition, row.EntryPrice,
		row.BaseBalance, row.QuoteBalance,
		row.RealizedPnL, row.OpenOrderID, row.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert cycle row: %w", err)
	}
	return nil
}

// RecentCycles returns the newest audit rows, most recent first.
func (d *Database) RecentCycles(ctx context.Context, limit int) ([]CycleRow, error) {
	if d == nil || d.DB == nil {
		return nil, ErrNoDatabase
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, ts, action, symbol,
		       exec_price, exec_qty, quote_cost,
		       ai_signal, ai_reply,
		       has_position, entry_price,
		       base_balance, quote_balance,
		       realized_pnl, open_order_id, notes
		FROM cycle_log
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRow
	for rows.Next() {
		var r CycleRow
		if err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Action, &r.Symbol,
			&r.ExecPrice, &r.ExecQty, &r.QuoteCost,
			&r.AISignal, &r.AIReply,
			&r.HasPosition, &r.EntryPrice,
			&r.BaseBalance, &r.QuoteBalance,
			&r.RealizedPnL, &r.OpenOrderID, &r.Notes,
		); err != nil {
			return nil, fmt.Errorf("scan cycle row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountCycles returns the total number of audit rows.
func (d *Database) CountCycles(ctx context.Context) (int64, error) {
	if d == nil || d.DB == nil {
		return 0, ErrNoDatabase
	}
	var n int64
	err := d.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM cycle_log").Scan(&n)
	return n, err
}
