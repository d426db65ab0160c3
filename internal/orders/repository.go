package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockbar/stockbar/internal/platform/db"
)

// tableSet resolves the relation names for one order kind. The schema keeps
// purchases and sales in separate table pairs; every query below is built
// from these constant identifiers.
type tableSet struct {
	header           string
	lines            string
	headerFK         string
	counterparty     string
	counterpartyPK   string
	counterpartyName string
}

func tablesFor(kind Kind) tableSet {
	if kind == KindPurchase {
		return tableSet{
			header:           "purchases",
			lines:            "purchase_lines",
			headerFK:         "purchase_id",
			counterparty:     "suppliers",
			counterpartyPK:   "id",
			counterpartyName: "business_name",
		}
	}
	return tableSet{
		header:           "sales",
		lines:            "sale_lines",
		headerFK:         "sale_id",
		counterparty:     "customers",
		counterpartyPK:   "id",
		counterpartyName: "name",
	}
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service. All
// stock mutations live here so that one order operation is one transaction.
type TxRepository interface {
	CounterpartyActive(ctx context.Context, kind Kind, id int64) (bool, error)
	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertLine(ctx context.Context, kind Kind, line Line) error
	GetForUpdate(ctx context.Context, kind Kind, id int64) (*Order, error)
	GetLines(ctx context.Context, kind Kind, orderID int64) ([]Line, error)
	UpdateHeader(ctx context.Context, kind Kind, id int64, counterpartyID int64, total float64, order Order) error
	UpdateStatus(ctx context.Context, kind Kind, id int64, status Status, reason *string) error
	DeleteLines(ctx context.Context, kind Kind, orderID int64) error
	DeleteOrder(ctx context.Context, kind Kind, id int64) error

	ProductStock(ctx context.Context, productID int64) (int, bool, error)
	AddStock(ctx context.Context, productID int64, qty int) error
	RemoveStock(ctx context.Context, productID int64, qty int) (bool, error)
	RemoveStockFloored(ctx context.Context, productID int64, qty int) error
	SetPurchasePrice(ctx context.Context, productID int64, price float64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("orders repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get fetches an order header with its lines.
func (r *Repository) Get(ctx context.Context, kind Kind, id int64) (*Order, error) {
	t := tablesFor(kind)
	order, err := scanOrder(kind, r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT id, %s, order_date, total, status, invoice_number, void_reason, created_by, created_at, updated_at
FROM %s WHERE id=$1`, counterpartyColumn(kind), t.header), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	lines, err := r.Lines(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return order, nil
}

// Lines fetches the line items of an order.
func (r *Repository) Lines(ctx context.Context, kind Kind, orderID int64) ([]Line, error) {
	t := tablesFor(kind)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id, %s, product_id, quantity, unit_price, subtotal FROM %s WHERE %s=$1 ORDER BY id`, t.headerFK, t.lines, t.headerFK), orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// List returns order headers joined with counterparty names, newest first.
func (r *Repository) List(ctx context.Context, kind Kind, filter ListFilter) ([]OrderWithCounterparty, int, error) {
	t := tablesFor(kind)
	cpCol := counterpartyColumn(kind)

	conditions := []string{"1=1"}
	var args []any
	argPos := 1
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.CounterpartyID != nil {
		conditions = append(conditions, fmt.Sprintf("o.%s = $%d", cpCol, argPos))
		args = append(args, *filter.CounterpartyID)
		argPos++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date >= $%d", argPos))
		args = append(args, *filter.DateFrom)
		argPos++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date <= $%d", argPos))
		args = append(args, *filter.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s o %s", t.header, whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT o.id, o.%s, o.order_date, o.total, o.status, o.invoice_number, o.void_reason, o.created_by, o.created_at, o.updated_at, c.%s
FROM %s o
LEFT JOIN %s c ON o.%s = c.%s
%s
ORDER BY o.order_date DESC, o.id DESC
LIMIT $%d OFFSET $%d`, cpCol, t.counterpartyName, t.header, t.counterparty, cpCol, t.counterpartyPK, whereClause, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []OrderWithCounterparty
	for rows.Next() {
		var row OrderWithCounterparty
		var name *string
		if err := rows.Scan(&row.ID, &row.CounterpartyID, &row.OrderDate, &row.Total, &row.Status, &row.InvoiceNumber, &row.VoidReason, &row.CreatedBy, &row.CreatedAt, &row.UpdatedAt, &name); err != nil {
			return nil, 0, err
		}
		row.Kind = kind
		if name != nil {
			row.CounterpartyName = *name
		}
		result = append(result, row)
	}
	return result, total, rows.Err()
}

func counterpartyColumn(kind Kind) string {
	if kind == KindPurchase {
		return "supplier_id"
	}
	return "customer_id"
}

func scanOrder(kind Kind, row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.CounterpartyID, &o.OrderDate, &o.Total, &o.Status, &o.InvoiceNumber, &o.VoidReason, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Kind = kind
	return &o, nil
}

func (r *txRepository) CounterpartyActive(ctx context.Context, kind Kind, id int64) (bool, error) {
	t := tablesFor(kind)
	var active bool
	err := r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT is_active FROM %s WHERE %s=$1`, t.counterparty, t.counterpartyPK), id).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return active, nil
}

func (r *txRepository) InsertOrder(ctx context.Context, order Order) (int64, error) {
	t := tablesFor(order.Kind)
	var id int64
	err := r.tx.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (%s, order_date, total, status, invoice_number, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING id`, t.header, counterpartyColumn(order.Kind)),
		order.CounterpartyID, order.OrderDate, order.Total, order.Status, order.InvoiceNumber, order.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLine(ctx context.Context, kind Kind, line Line) error {
	t := tablesFor(kind)
	_, err := r.tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (%s, product_id, quantity, unit_price, subtotal)
VALUES ($1,$2,$3,$4,$5)`, t.lines, t.headerFK), line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, kind Kind, id int64) (*Order, error) {
	t := tablesFor(kind)
	order, err := scanOrder(kind, r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT id, %s, order_date, total, status, invoice_number, void_reason, created_by, created_at, updated_at
FROM %s WHERE id=$1 FOR UPDATE`, counterpartyColumn(kind), t.header), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *txRepository) GetLines(ctx context.Context, kind Kind, orderID int64) ([]Line, error) {
	t := tablesFor(kind)
	rows, err := r.tx.Query(ctx, fmt.Sprintf(`SELECT id, %s, product_id, quantity, unit_price, subtotal FROM %s WHERE %s=$1 ORDER BY id`, t.headerFK, t.lines, t.headerFK), orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) UpdateHeader(ctx context.Context, kind Kind, id int64, counterpartyID int64, total float64, order Order) error {
	t := tablesFor(kind)
	_, err := r.tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET %s=$1, total=$2, order_date=$3, invoice_number=$4, updated_at=NOW() WHERE id=$5`, t.header, counterpartyColumn(kind)),
		counterpartyID, total, order.OrderDate, order.InvoiceNumber, id)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, kind Kind, id int64, status Status, reason *string) error {
	t := tablesFor(kind)
	_, err := r.tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET status=$1, void_reason=$2, updated_at=NOW() WHERE id=$3`, t.header), status, reason, id)
	return err
}

func (r *txRepository) DeleteLines(ctx context.Context, kind Kind, orderID int64) error {
	t := tablesFor(kind)
	_, err := r.tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s=$1`, t.lines, t.headerFK), orderID)
	return err
}

func (r *txRepository) DeleteOrder(ctx context.Context, kind Kind, id int64) error {
	t := tablesFor(kind)
	_, err := r.tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, t.header), id)
	return err
}

func (r *txRepository) ProductStock(ctx context.Context, productID int64) (int, bool, error) {
	var stock int
	err := r.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return stock, true, nil
}

func (r *txRepository) AddStock(ctx context.Context, productID int64, qty int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock = stock + $1, updated_at=NOW() WHERE id=$2`, qty, productID)
	return err
}

// RemoveStock decrements stock only when sufficient quantity is available and
// reports whether the decrement was applied. The condition and the write run
// in one statement so concurrent sales cannot both pass the check.
func (r *txRepository) RemoveStock(ctx context.Context, productID int64, qty int) (bool, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock = stock - $1, updated_at=NOW() WHERE id=$2 AND stock >= $1`, qty, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveStockFloored decrements stock clamping at zero. Used when reversing a
// purchase, matching the stock >= 0 invariant even if the product was sold in
// the meantime.
func (r *txRepository) RemoveStockFloored(ctx context.Context, productID int64, qty int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock = GREATEST(stock - $1, 0), updated_at=NOW() WHERE id=$2`, qty, productID)
	return err
}

func (r *txRepository) SetPurchasePrice(ctx context.Context, productID int64, price float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET purchase_price=$1, updated_at=NOW() WHERE id=$2`, price, productID)
	return err
}
