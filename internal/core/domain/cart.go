package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

type CartLine struct {
	Product  Product
	Quantity int
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the uncommitted lines of one session, keyed by product ID.
// A key is present only while its quantity is at least 1.
type Cart struct {
	id string

	mu    sync.RWMutex
	lines map[string]CartLine
}

func NewCart(id string) *Cart {
	return &Cart{
		id:    id,
		lines: make(map[string]CartLine),
	}
}

func (c *Cart) ID() string {
	return c.id
}

// AddItem sets the quantity for product. A repeated add replaces the
// previous quantity rather than accumulating it.
func (c *Cart) AddItem(product Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[product.ID] = CartLine{Product: product, Quantity: quantity}
	return nil
}

func (c *Cart) AddOne(product Product) error {
	return c.AddItem(product, 1)
}

// RemoveItem drops the line for productID. Removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lines, productID)
}

func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sumLines(c.lines)
}

// Lines returns a copy of the cart contents.
func (c *Cart) Lines() map[string]CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]CartLine, len(c.lines))
	for id, line := range c.lines {
		out[id] = line
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// RemoveLines deletes each line of charged whose quantity is still the one
// that was charged. Lines added or re-quantified since the snapshot stay.
func (c *Cart) RemoveLines(charged map[string]CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, line := range charged {
		if cur, ok := c.lines[id]; ok && cur.Quantity == line.Quantity {
			delete(c.lines, id)
		}
	}
}

func sumLines(lines map[string]CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
