// internal/services/errors.go
package services

import "errors"

// Validation errors: raised synchronously before any mutation and always
// recoverable by the caller adjusting input. Handlers translate them into
// HTTP responses with errors.Is.
var (
	ErrProductNotFound       = errors.New("product not found")
	ErrOutOfStock            = errors.New("product is out of stock")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrInvalidCurrencyDomain = errors.New("no price defined for currency domain")
	ErrItemNotFound          = errors.New("cart item not found")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidPhoneNumber    = errors.New("invalid phone number for provider")
	ErrOrderNotFound         = errors.New("order not found")
	ErrNotStoreOwner         = errors.New("order belongs to another store")
	ErrOrderNotCancellable   = errors.New("order can no longer be cancelled")
	ErrOrderNotPaid          = errors.New("order has not been paid")
	ErrOrderNotShipped       = errors.New("order has not been shipped")
	ErrPaymentNotFound       = errors.New("payment not found")
)
