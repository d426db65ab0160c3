package products

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/stockbar/stockbar/internal/masterdata/shared"
	"github.com/stockbar/stockbar/internal/shared"
)

// ListFilters narrows product listings beyond the standard set.
type ListFilters struct {
	mdshared.ListFilters
	CategoryID *int64
	LowStock   bool
}

// Repository defines persistence for products.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	AddStock(ctx context.Context, id int64, qty int) (bool, error)
	RemoveStock(ctx context.Context, id int64, qty int) (bool, error)
	OrderLineCount(ctx context.Context, id int64) (int, error)
	ListBelowMinStock(ctx context.Context) ([]Product, error)
	SearchByTerm(ctx context.Context, term string, limit int) ([]Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `p.id, p.name, p.description, p.barcode, p.category_id, c.name, p.purchase_price, p.sale_price, p.stock, p.min_stock, p.is_active, p.created_at, p.updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	var args []any
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (` + shared.SearchColumn("p.name") + ` LIKE $` + strconv.Itoa(argCount) + ` OR p.barcode = $` + strconv.Itoa(argCount+1) + `)`
		argCount++
		term := shared.NormalizeSearchTerm(filters.Search)
		args = append(args, "%"+term+"%", filters.Search)
	}
	if filters.CategoryID != nil {
		argCount++
		where += ` AND p.category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND p.is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if filters.LowStock {
		where += ` AND p.stock <= p.min_stock`
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM products p` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products p LEFT JOIN categories c ON p.category_id = c.id` + where +
		` ORDER BY p.name LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p LEFT JOIN categories c ON p.category_id = c.id WHERE p.id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, description, barcode, category_id, purchase_price, sale_price, stock, min_stock, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING id`,
		product.Name, product.Description, product.Barcode, product.CategoryID,
		product.PurchasePrice, product.SalePrice, product.Stock, product.MinStock, product.IsActive).
		Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, shared.ErrDuplicate
		}
		return Product{}, err
	}
	return product, nil
}

// Update never touches stock; stock moves only through orders or explicit
// adjustments.
func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name=$1, description=$2, barcode=$3, category_id=$4, purchase_price=$5, sale_price=$6, min_stock=$7, is_active=$8, updated_at=NOW() WHERE id=$9`,
		product.Name, product.Description, product.Barcode, product.CategoryID,
		product.PurchasePrice, product.SalePrice, product.MinStock, product.IsActive, id)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) AddStock(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock + $1, updated_at=NOW() WHERE id=$2`, qty, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveStock decrements only when enough stock is available, in a single
// statement.
func (r *repository) RemoveStock(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock - $1, updated_at=NOW() WHERE id=$2 AND stock >= $1`, qty, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) OrderLineCount(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM purchase_lines WHERE product_id=$1) +
  (SELECT COUNT(*) FROM sale_lines WHERE product_id=$1)`, id).Scan(&count)
	return count, err
}

// ListBelowMinStock returns active products at or below their minimum level.
func (r *repository) ListBelowMinStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products p LEFT JOIN categories c ON p.category_id = c.id
WHERE p.is_active AND p.stock <= p.min_stock ORDER BY p.stock`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SearchByTerm matches active products by normalised name or exact barcode.
func (r *repository) SearchByTerm(ctx context.Context, term string, limit int) ([]Product, error) {
	normalized := shared.NormalizeSearchTerm(term)
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products p LEFT JOIN categories c ON p.category_id = c.id
WHERE p.is_active AND (`+shared.SearchColumn("p.name")+` LIKE $1 OR p.barcode = $2) ORDER BY p.name LIMIT $3`,
		"%"+normalized+"%", term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var categoryName *string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Barcode, &p.CategoryID, &categoryName,
		&p.PurchasePrice, &p.SalePrice, &p.Stock, &p.MinStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if categoryName != nil {
		p.CategoryName = *categoryName
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
