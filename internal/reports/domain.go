// Package reports aggregates sales, purchases and inventory figures.
package reports

import "time"

// Summary is the dashboard payload.
type Summary struct {
	Range          DateRange       `json:"range"`
	Sales          OrderTotals     `json:"sales"`
	Purchases      OrderTotals     `json:"purchases"`
	Inventory      InventoryTotals `json:"inventory"`
	TopProducts    []ProductSales  `json:"top_products"`
	LowStockCount  int             `json:"low_stock_count"`
	PendingSales   int             `json:"pending_sales"`
	VoidedOrders   int             `json:"voided_orders"`
	ActiveProducts int             `json:"active_products"`
}

// DateRange bounds a report.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// OrderTotals aggregates one order family over the range. Voided orders are
// excluded.
type OrderTotals struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// InventoryTotals values the stock on hand.
type InventoryTotals struct {
	Units         int     `json:"units"`
	PurchaseValue float64 `json:"purchase_value"`
	SaleValue     float64 `json:"sale_value"`
}

// ProductSales ranks a product by quantity sold over the range.
type ProductSales struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
}
