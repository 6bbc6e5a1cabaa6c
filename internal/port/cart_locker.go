package port

import "context"

type CartLocker interface {
	// Acquire takes the checkout lock for a cart, returns false if already held
	Acquire(ctx context.Context, cartID string) (bool, error)

	// Release drops a lock taken by Acquire
	Release(ctx context.Context, cartID string) error
}
