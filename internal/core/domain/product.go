package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	UnitPrice   decimal.Decimal
	Description string
}

func NewProduct(id string, unitPrice decimal.Decimal, description string) (Product, error) {
	if id == "" {
		return Product{}, fmt.Errorf("%w: empty identifier", ErrInvalidProduct)
	}
	if unitPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: negative price for %s", ErrInvalidProduct, id)
	}
	return Product{ID: id, UnitPrice: unitPrice, Description: description}, nil
}
