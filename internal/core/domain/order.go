package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type OrderLine struct {
	ProductID   string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the committed snapshot of a cart taken at a successful checkout.
// It has no mutators; accessors hand out copies.
type Order struct {
	id        string
	cartID    string
	lines     []OrderLine
	createdAt time.Time
}

func NewOrder(id, cartID string, snapshot map[string]CartLine, createdAt time.Time) Order {
	lines := make([]OrderLine, 0, len(snapshot))
	for _, cl := range snapshot {
		lines = append(lines, OrderLine{
			ProductID:   cl.Product.ID,
			Description: cl.Product.Description,
			UnitPrice:   cl.Product.UnitPrice,
			Quantity:    cl.Quantity,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	return Order{
		id:        id,
		cartID:    cartID,
		lines:     lines,
		createdAt: createdAt,
	}
}

func (o Order) ID() string {
	return o.id
}

func (o Order) CartID() string {
	return o.cartID
}

func (o Order) CreatedAt() time.Time {
	return o.createdAt
}

func (o Order) Lines() []OrderLine {
	out := make([]OrderLine, len(o.lines))
	copy(out, o.lines)
	return out
}

func (o Order) Len() int {
	return len(o.lines)
}

func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
