package domain

import "errors"

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrPaymentUnavailable = errors.New("payment authorization unavailable")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)
