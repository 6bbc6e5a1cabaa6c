package port

import (
	"context"

	"github.com/rl1809/retail-checkout/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder archives a committed order together with its lines
	CreateOrder(ctx context.Context, order domain.Order) error
}
