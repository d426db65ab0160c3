package products

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockbar/stockbar/internal/shared"
)

type memRepo struct {
	products   map[int64]*Product
	orderLines map[int64]int
	nextID     int64
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[int64]*Product{}, orderLines: map[int64]int{}, nextID: 1}
}

func (r *memRepo) List(_ context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if filters.LowStock && p.Stock > p.MinStock {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return *p, nil
}

func (r *memRepo) Create(_ context.Context, product Product) (Product, error) {
	product.ID = r.nextID
	r.nextID++
	r.products[product.ID] = &product
	return product, nil
}

func (r *memRepo) Update(_ context.Context, id int64, product Product) error {
	existing, ok := r.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	stock := existing.Stock
	product.ID = id
	product.Stock = stock
	*existing = product
	return nil
}

func (r *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	p, ok := r.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = active
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memRepo) AddStock(_ context.Context, id int64, qty int) (bool, error) {
	p, ok := r.products[id]
	if !ok {
		return false, nil
	}
	p.Stock += qty
	return true, nil
}

func (r *memRepo) RemoveStock(_ context.Context, id int64, qty int) (bool, error) {
	p, ok := r.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (r *memRepo) OrderLineCount(_ context.Context, id int64) (int, error) {
	return r.orderLines[id], nil
}

func (r *memRepo) ListBelowMinStock(ctx context.Context) ([]Product, error) {
	out, _, err := r.List(ctx, ListFilters{LowStock: true})
	return out, err
}

func (r *memRepo) SearchByTerm(_ context.Context, term string, limit int) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if !p.IsActive {
			continue
		}
		if strings.Contains(shared.NormalizeSearchTerm(p.Name), shared.NormalizeSearchTerm(term)) || p.Barcode == term {
			out = append(out, *p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func seedProduct(repo *memRepo, stock int) Product {
	p, _ := repo.Create(context.Background(), Product{Name: "Rye Whiskey 750", CategoryID: 1, Stock: stock, MinStock: 5, IsActive: true})
	return p
}

func TestAdjustStockIn(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	p := seedProduct(repo, 10)

	updated, err := svc.AdjustStock(context.Background(), p.ID, AdjustmentIn, 6, "recount", 1)
	require.NoError(t, err)
	require.Equal(t, 16, updated.Stock)
}

func TestAdjustStockOut(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	p := seedProduct(repo, 10)

	updated, err := svc.AdjustStock(context.Background(), p.ID, AdjustmentOut, 4, "breakage", 1)
	require.NoError(t, err)
	require.Equal(t, 6, updated.Stock)
}

func TestAdjustStockOutInsufficient(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	p := seedProduct(repo, 3)

	_, err := svc.AdjustStock(context.Background(), p.ID, AdjustmentOut, 5, "", 1)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 3, stockErr.Available)
	require.Equal(t, 3, repo.products[p.ID].Stock)
}

func TestAdjustStockValidation(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	p := seedProduct(repo, 3)

	_, err := svc.AdjustStock(context.Background(), p.ID, "sideways", 1, "", 1)
	require.ErrorIs(t, err, shared.ErrValidationFailed)

	_, err = svc.AdjustStock(context.Background(), p.ID, AdjustmentIn, 0, "", 1)
	require.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestDeleteGuards(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)

	withStock := seedProduct(repo, 2)
	err := svc.Delete(context.Background(), withStock.ID, 1)
	require.ErrorIs(t, err, shared.ErrInUse)

	ordered := seedProduct(repo, 0)
	repo.orderLines[ordered.ID] = 4
	err = svc.Delete(context.Background(), ordered.ID, 1)
	require.ErrorIs(t, err, shared.ErrInUse)

	clean := seedProduct(repo, 0)
	require.NoError(t, svc.Delete(context.Background(), clean.ID, 1))
	_, err = svc.Get(context.Background(), clean.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateDoesNotTouchStock(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	p := seedProduct(repo, 9)

	updated, err := svc.Update(context.Background(), p.ID, Product{
		Name: "Rye Whiskey 1L", CategoryID: 1, MinStock: 8, IsActive: true,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 9, updated.Stock)
	require.Equal(t, "Rye Whiskey 1L", updated.Name)
}

func TestSearchSkipsInactiveProducts(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	active := seedProduct(repo, 10)
	hidden := seedProduct(repo, 10)
	require.NoError(t, repo.SetActive(context.Background(), hidden.ID, false))

	found, err := svc.Search(context.Background(), "whiskey")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, active.ID, found[0].ID)

	_, err = svc.Search(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrValidationFailed)
}

func TestSearchIgnoresAccents(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	stored, err := repo.Create(context.Background(), Product{Name: "Ron Limón Añejo", CategoryID: 1, Stock: 4, MinStock: 1, IsActive: true})
	require.NoError(t, err)

	for _, term := range []string{"limon", "Limón", "AÑEJO"} {
		found, err := svc.Search(context.Background(), term)
		require.NoError(t, err, term)
		require.Len(t, found, 1, term)
		require.Equal(t, stored.ID, found[0].ID, term)
	}
}

func TestLowStockListing(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	seedProduct(repo, 2)
	seedProduct(repo, 50)

	low, err := svc.ListBelowMinStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, 2, low[0].Stock)
}
