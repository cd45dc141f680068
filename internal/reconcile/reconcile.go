// Package reconcile rebuilds controller state from the exchange at
// startup. The in-memory Position/PendingOrder die with the process, but
// exchange-side orders and holdings do not; without this pass a restart
// would orphan them.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/controller"
	"github.com/IsacDav66/Criptobot/pkg/config"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/binance/spot"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// Exchange is the subset of the spot client the reconciler needs.
type Exchange interface {
	GetOpenOrders(ctx context.Context, symbol string) ([]spot.OpenOrder, error)
	GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}

// Run reconstructs the pre-restart state: a resting order on the
// configured symbol becomes the PendingOrder, otherwise a base-asset
// balance of at least one trade size becomes a Position. The true entry
// price died with the previous process, so referencePrice (the current
// market price) stands in for it; realized P&L on that position is
// measured from here on, not from the original fill.
func Run(ctx context.Context, ex Exchange, cfg *config.Config, referencePrice decimal.Decimal) (*controller.Position, *controller.PendingOrder, error) {
	orders, err := ex.GetOpenOrders(ctx, cfg.Symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("list open orders: %w", err)
	}

	if len(orders) > 0 {
		if len(orders) > 1 {
			// The controller never places more than one; extras were
			// placed manually and are left alone.
			log.Printf("reconcile: %d open orders on %s, adopting the oldest", len(orders), cfg.Symbol)
		}
		o := oldest(orders)
		pending := &controller.PendingOrder{
			ID:       o.OrderID,
			Side:     o.Side,
			Price:    o.Price,
			Qty:      o.OrigQty,
			PlacedAt: o.Time,
		}
		log.Printf("reconcile: adopted resting %s order %s at %s qty %s placed %s",
			o.Side, o.OrderID, o.Price, o.OrigQty, o.Time.Format("2006-01-02 15:04:05"))

		var pos *controller.Position
		if o.Side == common.SideSell {
			// A resting SELL implies a holding behind it.
			pos = &controller.Position{EntryPrice: referencePrice, EntryTime: o.Time}
		}
		return pos, pending, nil
	}

	free, err := ex.GetFreeBalance(ctx, cfg.BaseAsset)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s balance: %w", cfg.BaseAsset, err)
	}
	if free.GreaterThanOrEqual(cfg.TradeSize) {
		log.Printf("reconcile: found %s %s with no resting order, adopting as a position at reference price %s",
			free, cfg.BaseAsset, referencePrice)
		return &controller.Position{EntryPrice: referencePrice}, nil, nil
	}

	log.Println("reconcile: clean start, no orders or holdings to adopt")
	return nil, nil, nil
}

func oldest(orders []spot.OpenOrder) spot.OpenOrder {
	o := orders[0]
	for _, cand := range orders[1:] {
		if cand.Time.Before(o.Time) {
			o = cand
		}
	}
	return o
}
