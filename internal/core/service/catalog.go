package service

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rl1809/retail-checkout/internal/core/domain"
)

// Catalog is a read-only product lookup populated once at construction.
type Catalog struct {
	products map[string]domain.Product
	ordered  []domain.Product
}

func NewCatalog(products []domain.Product) *Catalog {
	c := &Catalog{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}

	c.ordered = make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		c.ordered = append(c.ordered, p)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })

	return c
}

func (c *Catalog) Lookup(id string) (domain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p, nil
}

// List returns the products sorted by identifier.
func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// SeedProducts is the fixed startup assortment.
func SeedProducts() []domain.Product {
	seed := []struct {
		id, price, description string
	}{
		{"Laptop", "999.99", "High-performance gaming laptop with RTX4090."},
		{"Smartphone", "599.99", "Apple Iphone 15 256GB."},
		{"Toaster", "25.99", "A toaster for toasting bread slices."},
		{"Coffee Maker", "49.99", "An electric coffee maker for brewing coffee."},
		{"Vacuum Cleaner", "99.99", "DYSON vacuum cleaner for cleaning floors."},
	}

	products := make([]domain.Product, 0, len(seed))
	for _, s := range seed {
		p, err := domain.NewProduct(s.id, decimal.RequireFromString(s.price), s.description)
		if err != nil {
			panic(err)
		}
		products = append(products, p)
	}
	return products
}
