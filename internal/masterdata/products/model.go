// Package products manages the product catalogue and its stock levels.
package products

import (
	"fmt"
	"time"
)

// Product represents a sellable item.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Barcode       string    `json:"barcode"`
	CategoryID    int64     `json:"category_id"`
	CategoryName  string    `json:"category_name,omitempty"`
	PurchasePrice float64   `json:"purchase_price"`
	SalePrice     float64   `json:"sale_price"`
	Stock         int       `json:"stock"`
	MinStock      int       `json:"min_stock"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AdjustmentDirection says which way a manual stock adjustment moves.
type AdjustmentDirection string

const (
	// AdjustmentIn adds stock.
	AdjustmentIn AdjustmentDirection = "in"
	// AdjustmentOut removes stock, refusing to go below zero.
	AdjustmentOut AdjustmentDirection = "out"
)

// Valid reports whether the direction is supported.
func (d AdjustmentDirection) Valid() bool {
	return d == AdjustmentIn || d == AdjustmentOut
}

// InsufficientStockError reports a manual adjustment that would drive stock
// below zero.
type InsufficientStockError struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("products: insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}
