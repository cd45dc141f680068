package common

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway abstracts the spot trading venue. All calls are blocking; the
// controller drives them synchronously inside its cycle.
type Gateway interface {
	// GetSymbolRules fetches the precision filters for a symbol.
	GetSymbolRules(ctx context.Context, symbol string) (SymbolRules, error)
	// GetFreeBalance returns the free (unlocked) balance for an asset.
	GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	// SubmitOrder places an order. Quantity and price must already be
	// aligned to the symbol rules; the exchange rejects them otherwise.
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
	// QueryOrder fetches the current state of an order.
	QueryOrder(ctx context.Context, symbol, orderID string) (OrderState, error)
	// CancelOrder cancels a resting order. Best-effort: callers log
	// failures and move on, they never retry.
	CancelOrder(ctx context.Context, symbol, orderID string) error
}
