package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaleTotals sums non-voided sales in the range.
func (r *Repository) SaleTotals(ctx context.Context, from, to time.Time) (OrderTotals, error) {
	var t OrderTotals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)
FROM sales WHERE status <> 'VOIDED' AND order_date BETWEEN $1 AND $2`, from, to).Scan(&t.Count, &t.Total)
	return t, err
}

// PurchaseTotals sums non-voided purchases in the range.
func (r *Repository) PurchaseTotals(ctx context.Context, from, to time.Time) (OrderTotals, error) {
	var t OrderTotals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)
FROM purchases WHERE status <> 'VOIDED' AND order_date BETWEEN $1 AND $2`, from, to).Scan(&t.Count, &t.Total)
	return t, err
}

// InventoryTotals values current stock at purchase and sale prices.
func (r *Repository) InventoryTotals(ctx context.Context) (InventoryTotals, error) {
	var t InventoryTotals
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(stock), 0),
  COALESCE(SUM(stock * purchase_price), 0),
  COALESCE(SUM(stock * sale_price), 0)
FROM products WHERE is_active`).Scan(&t.Units, &t.PurchaseValue, &t.SaleValue)
	return t, err
}

// TopProducts ranks products by quantity sold in the range.
func (r *Repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, SUM(l.quantity), SUM(l.subtotal)
FROM sale_lines l
JOIN sales s ON l.sale_id = s.id
JOIN products p ON l.product_id = p.id
WHERE s.status <> 'VOIDED' AND s.order_date BETWEEN $1 AND $2
GROUP BY p.id, p.name
ORDER BY SUM(l.quantity) DESC
LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductSales
	for rows.Next() {
		var p ProductSales
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Total); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Counters returns the remaining dashboard counts in one round trip.
func (r *Repository) Counters(ctx context.Context, from, to time.Time) (lowStock, pendingSales, voided, activeProducts int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM products WHERE is_active AND stock <= min_stock),
  (SELECT COUNT(*) FROM sales WHERE status = 'PENDING'),
  (SELECT COUNT(*) FROM sales WHERE status = 'VOIDED' AND order_date BETWEEN $1 AND $2) +
  (SELECT COUNT(*) FROM purchases WHERE status = 'VOIDED' AND order_date BETWEEN $1 AND $2),
  (SELECT COUNT(*) FROM products WHERE is_active)`, from, to).
		Scan(&lowStock, &pendingSales, &voided, &activeProducts)
	return
}
