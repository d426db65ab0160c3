// Package suppliers manages the supplier registry.
package suppliers

import "time"

// Supplier represents a purchasing counterparty.
type Supplier struct {
	ID           int64     `json:"id"`
	BusinessName string    `json:"business_name"`
	TaxID        string    `json:"tax_id"`
	ContactName  string    `json:"contact_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
