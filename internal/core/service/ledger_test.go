package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/retail-checkout/internal/core/domain"
)

// Mock PaymentAuthorizer
type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) Authorize(ctx context.Context, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, amount)
	return args.Bool(0), args.Error(1)
}

// staticAuthorizer answers every request the same way and counts calls.
type staticAuthorizer struct {
	approve bool
	delay   time.Duration
	calls   atomic.Int32
}

func (a *staticAuthorizer) Authorize(ctx context.Context, amount decimal.Decimal) (bool, error) {
	a.calls.Add(1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	return a.approve, nil
}

// Mock CartLocker
type mockLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	fails error
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]bool)}
}

func (m *mockLocker) Acquire(ctx context.Context, cartID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fails != nil {
		return false, m.fails
	}
	if m.held[cartID] {
		return false, nil
	}
	m.held[cartID] = true
	return true, nil
}

func (m *mockLocker) Release(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, cartID)
	return nil
}

func (m *mockLocker) isHeld(cartID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[cartID]
}

func laptopCart(t *testing.T) *domain.Cart {
	t.Helper()
	laptop, err := NewCatalog(SeedProducts()).Lookup("Laptop")
	require.NoError(t, err)

	cart := domain.NewCart("user-1")
	require.NoError(t, cart.AddOne(laptop))
	return cart
}

func TestCheckout_Success(t *testing.T) {
	locker := newMockLocker()
	ledger := NewOrderLedger(&staticAuthorizer{approve: true}, locker, 0)
	cart := laptopCart(t)

	order, err := ledger.Checkout(context.Background(), cart)
	require.NoError(t, err)

	assert.Equal(t, "999.99", order.Total().String())
	assert.NotEmpty(t, order.ID())
	assert.Equal(t, "user-1", order.CartID())
	assert.Equal(t, 1, ledger.Len())
	assert.Empty(t, cart.Lines())
	assert.False(t, locker.isHeld("user-1"))

	stored, ok := ledger.Order(order.ID())
	require.True(t, ok)
	assert.Equal(t, order.ID(), stored.ID())
}

func TestCheckout_Declined(t *testing.T) {
	locker := newMockLocker()
	ledger := NewOrderLedger(&staticAuthorizer{approve: false}, locker, 0)
	cart := laptopCart(t)

	_, err := ledger.Checkout(context.Background(), cart)
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)

	assert.Equal(t, 0, ledger.Len())
	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines["Laptop"].Quantity)
	assert.False(t, locker.isHeld("user-1"))
}

func TestCheckout_DeclineThenRetry(t *testing.T) {
	auth := new(mockAuthorizer)
	auth.On("Authorize", mock.Anything, mock.Anything).Return(false, nil).Once()
	auth.On("Authorize", mock.Anything, mock.Anything).Return(true, nil).Once()

	ledger := NewOrderLedger(auth, newMockLocker(), 0)
	cart := laptopCart(t)

	_, err := ledger.Checkout(context.Background(), cart)
	require.ErrorIs(t, err, domain.ErrPaymentDeclined)

	order, err := ledger.Checkout(context.Background(), cart)
	require.NoError(t, err)
	assert.Equal(t, "999.99", order.Total().String())
	assert.Equal(t, 1, ledger.Len())
	assert.Equal(t, 0, cart.Len())
	auth.AssertExpectations(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	auth := &staticAuthorizer{approve: true}
	ledger := NewOrderLedger(auth, newMockLocker(), 0)

	_, err := ledger.Checkout(context.Background(), domain.NewCart("user-1"))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	assert.Equal(t, 0, ledger.Len())
	assert.Equal(t, int32(0), auth.calls.Load())
}

func TestCheckout_AuthorizerError(t *testing.T) {
	gatewayErr := errors.New("gateway unreachable")
	auth := new(mockAuthorizer)
	auth.On("Authorize", mock.Anything, mock.Anything).Return(false, gatewayErr)

	ledger := NewOrderLedger(auth, newMockLocker(), 0)
	cart := laptopCart(t)

	_, err := ledger.Checkout(context.Background(), cart)
	assert.ErrorIs(t, err, gatewayErr)
	assert.ErrorIs(t, err, domain.ErrPaymentUnavailable)
	assert.NotErrorIs(t, err, domain.ErrPaymentDeclined)

	assert.Equal(t, 0, ledger.Len())
	assert.Equal(t, 1, cart.Len())
}

func TestCheckout_KeepsLinesAddedDuringAuthorization(t *testing.T) {
	toaster, err := NewCatalog(SeedProducts()).Lookup("Toaster")
	require.NoError(t, err)
	cart := laptopCart(t)

	auth := new(mockAuthorizer)
	auth.On("Authorize", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			require.NoError(t, cart.AddOne(toaster))
		}).
		Return(true, nil)

	ledger := NewOrderLedger(auth, newMockLocker(), 0)

	order, err := ledger.Checkout(context.Background(), cart)
	require.NoError(t, err)

	assert.Equal(t, 1, order.Len())
	assert.Equal(t, "999.99", order.Total().String())

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines["Toaster"].Quantity)
	auth.AssertNumberOfCalls(t, "Authorize", 1)
}

func TestCheckout_ChargesSnapshotTotal(t *testing.T) {
	catalog := NewCatalog(SeedProducts())
	cart := domain.NewCart("user-1")
	for id, qty := range map[string]int{"Laptop": 1, "Toaster": 2, "Coffee Maker": 3} {
		p, err := catalog.Lookup(id)
		require.NoError(t, err)
		require.NoError(t, cart.AddItem(p, qty))
	}

	want := decimal.RequireFromString("1201.94")
	auth := new(mockAuthorizer)
	auth.On("Authorize", mock.Anything, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})).Return(true, nil).Once()

	ledger := NewOrderLedger(auth, newMockLocker(), 0)
	order, err := ledger.Checkout(context.Background(), cart)
	require.NoError(t, err)

	assert.True(t, order.Total().Equal(want))
	assert.Equal(t, 3, order.Len())
	auth.AssertExpectations(t)
}

func TestCheckout_LockHeld(t *testing.T) {
	locker := newMockLocker()
	locker.held["user-1"] = true
	auth := &staticAuthorizer{approve: true}
	ledger := NewOrderLedger(auth, locker, 0)
	cart := laptopCart(t)

	_, err := ledger.Checkout(context.Background(), cart)
	assert.ErrorIs(t, err, domain.ErrCheckoutInProgress)
	assert.Equal(t, int32(0), auth.calls.Load())
	assert.Equal(t, 1, cart.Len())
}

func TestCheckout_LockerError(t *testing.T) {
	locker := newMockLocker()
	locker.fails = errors.New("redis down")
	ledger := NewOrderLedger(&staticAuthorizer{approve: true}, locker, 0)

	_, err := ledger.Checkout(context.Background(), laptopCart(t))
	assert.ErrorIs(t, err, locker.fails)
	assert.Equal(t, 0, ledger.Len())
}

func TestLedger_Ordering(t *testing.T) {
	ledger := NewOrderLedger(&staticAuthorizer{approve: true}, newMockLocker(), 0)
	catalog := NewCatalog(SeedProducts())

	var placed []string
	for _, id := range []string{"Laptop", "Toaster", "Smartphone"} {
		p, err := catalog.Lookup(id)
		require.NoError(t, err)

		cart := domain.NewCart("user-" + id)
		require.NoError(t, cart.AddOne(p))

		order, err := ledger.Checkout(context.Background(), cart)
		require.NoError(t, err)
		placed = append(placed, order.ID())
	}

	all := ledger.AllOrders()
	require.Len(t, all, 3)
	for i, order := range all {
		assert.Equal(t, placed[i], order.ID())
	}
	assert.Equal(t, "Toaster", all[1].Lines()[0].ProductID)
}

func TestLedger_AllOrdersIsACopy(t *testing.T) {
	ledger := NewOrderLedger(&staticAuthorizer{approve: true}, newMockLocker(), 0)
	_, err := ledger.Checkout(context.Background(), laptopCart(t))
	require.NoError(t, err)

	all := ledger.AllOrders()
	all[0] = domain.Order{}

	assert.NotEmpty(t, ledger.AllOrders()[0].ID())
}

func TestCheckout_ConcurrentSameCart(t *testing.T) {
	auth := &staticAuthorizer{approve: true, delay: 10 * time.Millisecond}
	ledger := NewOrderLedger(auth, newMockLocker(), 0)
	cart := laptopCart(t)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Checkout(context.Background(), cart); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
	assert.Equal(t, 1, ledger.Len())
	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestCheckout_ConcurrentDistinctCarts(t *testing.T) {
	ledger := NewOrderLedger(&staticAuthorizer{approve: true}, newMockLocker(), 0)
	laptop, err := NewCatalog(SeedProducts()).Lookup("Laptop")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		cart := domain.NewCart("user-" + string(rune('A'+i)))
		require.NoError(t, cart.AddOne(laptop))

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Checkout(context.Background(), cart)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, ledger.Len())
}

func TestCheckout_OrderQueued(t *testing.T) {
	ledger := NewOrderLedger(&staticAuthorizer{approve: true}, newMockLocker(), 10)

	placed, err := ledger.Checkout(context.Background(), laptopCart(t))
	require.NoError(t, err)

	queued := <-ledger.GetOrderQueue()
	assert.Equal(t, placed.ID(), queued.ID())

	ledger.Close()
	_, open := <-ledger.GetOrderQueue()
	assert.False(t, open)

	// Checkout keeps working once the archive queue is closed.
	_, err = ledger.Checkout(context.Background(), laptopCart(t))
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.Len())
}

func TestCheckout_NoQueue(t *testing.T) {
	ledger := NewOrderLedger(&staticAuthorizer{approve: true}, newMockLocker(), 0)
	assert.Nil(t, ledger.GetOrderQueue())
	ledger.Close()
}
