package ports

import (
	"context"

	"tradingdesk/internal/domain"
	"tradingdesk/internal/protos/orders"
)

// OrderParams are the caller-supplied fields for one order submission.
// Beyond requiring Symbol, Qty and Side to be set by convention, the client
// performs no validation: enum and numeric checking is server-side, and
// invalid values travel as-is and come back as a failure status.
type OrderParams struct {
	Symbol      string
	Qty         string // decimal as string, e.g. "10" or "10.5"
	Side        domain.OrderSide
	OrderType   domain.OrderType   // empty defaults to market
	TimeInForce domain.TimeInForce // empty defaults to day
	LimitPrice  string             // empty means omitted from the wire message
	StopPrice   string             // empty means omitted from the wire message
}

// OrderPlacer submits orders to the trading desk server.
// A returned OrderResponse with a non-"success" status is a normal outcome,
// not an error; errors are reserved for transport and decode failures.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, params OrderParams) (*orders.OrderResponse, error)
}

// DeploymentJournal persists strategy lifecycle events.
type DeploymentJournal interface {
	// RecordEvent stores one lifecycle attempt.
	RecordEvent(ctx context.Context, event *domain.DeploymentEvent) error

	// RecentEvents returns up to limit events, most recent first.
	RecentEvents(ctx context.Context, limit int) ([]*domain.DeploymentEvent, error)
}
