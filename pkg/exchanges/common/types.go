package common

import "github.com/shopspring/decimal"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes the order types the bot places.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TimeInForce captures TIF semantics.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
)

// OrderStatus mirrors exchange order lifecycle states.
type OrderStatus string

const (
	StatusNew           OrderStatus = "NEW"
	StatusPartial       OrderStatus = "PARTIALLY_FILLED"
	StatusFilled        OrderStatus = "FILLED"
	StatusCanceled      OrderStatus = "CANCELED"
	StatusExpired       OrderStatus = "EXPIRED"
	StatusRejected      OrderStatus = "REJECTED"
	StatusPendingCancel OrderStatus = "PENDING_CANCEL"
	StatusUnknown       OrderStatus = "UNKNOWN"
)

// Open reports whether the order is still working on the exchange book.
func (s OrderStatus) Open() bool {
	return s == StatusNew || s == StatusPartial || s == StatusPendingCancel
}

// Dead reports whether the order terminated without (fully) filling.
func (s OrderStatus) Dead() bool {
	return s == StatusCanceled || s == StatusExpired || s == StatusRejected
}

// SymbolRules holds the exchange precision filters for one symbol.
// Cached for the process lifetime; they change rarely.
type SymbolRules struct {
	Symbol      string
	PriceTick   decimal.Decimal // PRICE_FILTER tickSize
	QtyStep     decimal.Decimal // LOT_SIZE stepSize
	MinQty      decimal.Decimal // LOT_SIZE minQty
	MinNotional decimal.Decimal // NOTIONAL minNotional
}

// AlignPrice floors a raw price to the symbol tick size.
func (r SymbolRules) AlignPrice(price decimal.Decimal) decimal.Decimal {
	return floorToStep(price, r.PriceTick)
}

// AlignQty floors a raw quantity to the symbol lot step.
func (r SymbolRules) AlignQty(qty decimal.Decimal) decimal.Decimal {
	return floorToStep(qty, r.QtyStep)
}

// floorToStep returns the largest multiple of step that is <= v.
// A zero step leaves the value untouched.
func floorToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

// OrderRequest captures an order intent to be sent to the exchange.
// Qty and Price must already be aligned to the symbol rules.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	Qty         decimal.Decimal
	Price       decimal.Decimal // required for LIMIT
	TimeInForce TimeInForce
	ClientID    string // optional client order id
}

// OrderAck is the exchange acknowledgement of a placed order. Market orders
// usually come back FILLED with executed quantities already populated.
type OrderAck struct {
	OrderID     string
	Status      OrderStatus
	Price       decimal.Decimal // quoted price (zero for market orders)
	OrigQty     decimal.Decimal
	ExecutedQty decimal.Decimal
	CumQuoteQty decimal.Decimal // cumulative quote value of fills
}

// OrderState is a point-in-time view of a resting order.
type OrderState struct {
	Status      OrderStatus
	ExecutedQty decimal.Decimal
	CumQuoteQty decimal.Decimal
}
