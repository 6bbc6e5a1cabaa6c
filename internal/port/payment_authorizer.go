package port

import (
	"context"

	"github.com/shopspring/decimal"
)

type PaymentAuthorizer interface {
	// Authorize approves or declines a non-negative amount. A non-nil error
	// means no decision was reached.
	Authorize(ctx context.Context, amount decimal.Decimal) (bool, error)
}
