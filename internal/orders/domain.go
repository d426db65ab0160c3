// Package orders implements the order transaction processor: purchases and
// sales whose creation, editing and voiding adjust product stock atomically.
package orders

import (
	"errors"
	"fmt"
	"time"
)

// Kind discriminates the two order families.
type Kind string

const (
	// KindPurchase is an order placed to a supplier; it increases stock.
	KindPurchase Kind = "purchase"
	// KindSale is an order placed by a customer; it decreases stock.
	KindSale Kind = "sale"
)

// Valid reports whether the kind is one of the supported values.
func (k Kind) Valid() bool {
	return k == KindPurchase || k == KindSale
}

// Status enumerates the order lifecycle states.
type Status string

const (
	// StatusPending marks an order whose lines may still be edited.
	StatusPending Status = "PENDING"
	// StatusCompleted marks a finalised order.
	StatusCompleted Status = "COMPLETED"
	// StatusVoided marks a soft-cancelled order whose stock effect was reversed.
	StatusVoided Status = "VOIDED"
)

// Valid reports whether the status is one of the supported values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusVoided:
		return true
	}
	return false
}

// Order models a purchase or sale header.
type Order struct {
	ID             int64     `json:"id"`
	Kind           Kind      `json:"kind"`
	CounterpartyID int64     `json:"counterparty_id"`
	OrderDate      time.Time `json:"order_date"`
	Total          float64   `json:"total"`
	Status         Status    `json:"status"`
	InvoiceNumber  *string   `json:"invoice_number,omitempty"`
	VoidReason     *string   `json:"void_reason,omitempty"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Lines          []Line    `json:"lines,omitempty"`
}

// Line models one product entry within an order.
type Line struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// OrderWithCounterparty is a listing row joined with the counterparty name.
type OrderWithCounterparty struct {
	Order
	CounterpartyName string `json:"counterparty_name"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status         *Status
	CounterpartyID *int64
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

var (
	// ErrNotFound indicates the referenced order does not exist.
	ErrNotFound = errors.New("orders: order not found")
	// ErrInvalidState indicates the order status forbids the operation.
	ErrInvalidState = errors.New("orders: operation not allowed in current status")
	// ErrAlreadyVoided indicates a void attempt against a voided order.
	ErrAlreadyVoided = errors.New("orders: order is already voided")
)

// ValidationError reports invalid input detected before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "orders: " + e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports a sale line that would drive stock below zero.
type InsufficientStockError struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("orders: insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}
