package domain

// OrderSide represents the side of an order (buy or sell).
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// OrderType represents how an order is priced.
type OrderType string

const (
	Market    OrderType = "market"
	Limit     OrderType = "limit"
	Stop      OrderType = "stop"
	StopLimit OrderType = "stop_limit"
)

// TimeInForce represents how long an order remains active.
type TimeInForce string

const (
	Day TimeInForce = "day"
	GTC TimeInForce = "gtc"
	IOC TimeInForce = "ioc"
	FOK TimeInForce = "fok"
)

// DefaultOrderType and DefaultTimeInForce are applied by the client when the
// caller leaves the field empty. No other client-side defaulting or validation
// happens; the server owns enum and numeric validation.
const (
	DefaultOrderType   = Market
	DefaultTimeInForce = Day
)
