package service

import (
	"errors"
	"strings"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrProductNotFound   = errors.New("product not found")
	ErrSaleTypeNotFound  = errors.New("sale type not found")
	ErrQuantityInvalid   = errors.New("quantity must be > 0")
	ErrLimitExceeded     = errors.New("limited sale quantity exceeded")
	ErrCartLineNotFound  = errors.New("cart line not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderFinalized    = errors.New("order is finalized")
	ErrEmptyOrder        = errors.New("order has no payable amount")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrCouponInvalid     = errors.New("coupon is invalid or expired")
	ErrAddressNotFound   = errors.New("address not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrPaymentInProgress = errors.New("payment is in progress")
	ErrInvalidCallback   = errors.New("invalid gateway callback")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError: ошибки формы; состояние при этом не меняется
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
