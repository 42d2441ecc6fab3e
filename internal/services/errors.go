package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/validation"
)

// Expected outcomes of service calls. Handlers translate them into status
// codes; anything else is an unexpected failure.
var (
	ErrUnauthenticated    = errors.New("unable to resolve user from token or payload")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWrongPassword      = errors.New("old password is incorrect")
)

// NotFoundError reports a missing row.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func notFound(entity string) error { return &NotFoundError{Entity: entity} }

// ValidationError carries per-field messages.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Violations))
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

func invalidField(field, msg string) error {
	v := validation.Violations{}
	v.Add(field, msg)
	return &ValidationError{Violations: v}
}

// InsufficientStockError is returned when a reservation asks for more than
// the shelf holds. It is reported to clients as a validation error on quantity.
type InsufficientStockError struct {
	ProductID uint
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product '%s' (available: %d, requested: %d)",
		e.Product, e.Available, e.Requested)
}

// Violations exposes the error as a field error on quantity.
func (e *InsufficientStockError) Violations() validation.Violations {
	v := validation.Violations{}
	v.Add("quantity", e.Error())
	return v
}

// ConflictError means the request is well formed but the current state of
// the target forbids it (a paid sale cannot take new items, and so on).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func saleConflict(sale *models.Sale, op string) error {
	return &ConflictError{Message: fmt.Sprintf("Cannot %s: sale %d is %s", op, sale.ID, sale.PaymentStatus)}
}
