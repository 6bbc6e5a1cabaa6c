package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/retail-checkout/internal/core/domain"
	"github.com/rl1809/retail-checkout/internal/port"
)

// OrderLedger runs checkouts and keeps the append-only history of orders.
type OrderLedger struct {
	authorizer port.PaymentAuthorizer
	locker     port.CartLocker

	mu     sync.RWMutex
	orders []domain.Order
	byID   map[string]int

	queueMu    sync.RWMutex
	queueOpen  bool
	orderQueue chan domain.Order

	now   func() time.Time
	newID func() string
}

// NewOrderLedger builds a ledger. A positive queueSize enables the archive
// queue returned by GetOrderQueue.
func NewOrderLedger(authorizer port.PaymentAuthorizer, locker port.CartLocker, queueSize int) *OrderLedger {
	l := &OrderLedger{
		authorizer: authorizer,
		locker:     locker,
		byID:       make(map[string]int),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	if queueSize > 0 {
		l.orderQueue = make(chan domain.Order, queueSize)
		l.queueOpen = true
	}
	return l
}

// Checkout charges the cart's current contents and records them as an order.
// On any failure the cart and the ledger are left as they were.
func (l *OrderLedger) Checkout(ctx context.Context, cart *domain.Cart) (domain.Order, error) {
	ok, err := l.locker.Acquire(ctx, cart.ID())
	if err != nil {
		return domain.Order{}, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !ok {
		return domain.Order{}, domain.ErrCheckoutInProgress
	}
	defer func() {
		if err := l.locker.Release(context.WithoutCancel(ctx), cart.ID()); err != nil {
			log.Error().Err(err).Str("cart_id", cart.ID()).Msg("failed to release checkout lock")
		}
	}()

	snapshot := cart.Lines()
	if len(snapshot) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	order := domain.NewOrder(l.newID(), cart.ID(), snapshot, l.now())
	total := order.Total()

	approved, err := l.authorizer.Authorize(ctx, total)
	if err != nil {
		log.Error().Err(err).Str("cart_id", cart.ID()).Stringer("total", total).Msg("payment authorization failed")
		return domain.Order{}, fmt.Errorf("%w: %w", domain.ErrPaymentUnavailable, err)
	}
	if !approved {
		log.Warn().Str("cart_id", cart.ID()).Stringer("total", total).Msg("payment declined")
		return domain.Order{}, domain.ErrPaymentDeclined
	}

	l.mu.Lock()
	l.byID[order.ID()] = len(l.orders)
	l.orders = append(l.orders, order)
	l.mu.Unlock()

	cart.RemoveLines(snapshot)

	log.Info().Str("order_id", order.ID()).Str("cart_id", cart.ID()).Stringer("total", total).Msg("order placed")

	l.enqueue(ctx, order)

	return order, nil
}

func (l *OrderLedger) enqueue(ctx context.Context, order domain.Order) {
	l.queueMu.RLock()
	defer l.queueMu.RUnlock()

	if !l.queueOpen {
		return
	}

	select {
	case l.orderQueue <- order:
	case <-ctx.Done():
		log.Warn().Str("order_id", order.ID()).Msg("order not archived: request cancelled")
	}
}

// AllOrders returns the history, oldest first.
func (l *OrderLedger) AllOrders() []domain.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

func (l *OrderLedger) Order(id string) (domain.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.byID[id]
	if !ok {
		return domain.Order{}, false
	}
	return l.orders[idx], true
}

func (l *OrderLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// GetOrderQueue exposes committed orders for archiving. Nil when the ledger
// was built without a queue.
func (l *OrderLedger) GetOrderQueue() <-chan domain.Order {
	return l.orderQueue
}

func (l *OrderLedger) Close() {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()

	if l.queueOpen {
		l.queueOpen = false
		close(l.orderQueue)
	}
}
