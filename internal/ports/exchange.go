package ports

import (
	"context"

	"github.com/amedina/polypilot/internal/domain"
)

// ExchangeClient places and reconciles orders on the CLOB.
type ExchangeClient interface {
	// CheckConnectivity probes the exchange once. The readiness gate owns
	// retries and backoff.
	CheckConnectivity(ctx context.Context) (domain.Connectivity, error)

	// GetBalance returns the available balance for the given asset.
	GetBalance(ctx context.Context, asset string) (float64, error)

	// SubmitOrder signs and submits a GTC limit order. The intent's
	// ClientRequestID travels with the order for idempotent resubmission.
	SubmitOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderResult, error)

	// GetOrderStatus returns the current state of an order by its external id.
	GetOrderStatus(ctx context.Context, externalOrderID string) (domain.OrderResult, error)

	// FindOrderByClientID looks up an existing order carrying the given
	// clientRequestId. found=false with nil error means no such order exists
	// and a fresh submission is safe.
	FindOrderByClientID(ctx context.Context, clientRequestID string) (result domain.OrderResult, found bool, err error)
}
