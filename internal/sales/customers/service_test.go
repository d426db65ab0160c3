package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	mdshared "github.com/stockbar/stockbar/internal/masterdata/shared"
	"github.com/stockbar/stockbar/internal/shared"
)

type memRepo struct {
	customers map[int64]*Customer
	sales     map[int64]int
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{customers: map[int64]*Customer{}, sales: map[int64]int{}, nextID: 1}
}

func (r *memRepo) List(context.Context, mdshared.ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *memRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return *c, nil
}

func (r *memRepo) Create(_ context.Context, customer Customer) (Customer, error) {
	for _, existing := range r.customers {
		if existing.Document == customer.Document {
			return Customer{}, shared.ErrDuplicate
		}
	}
	customer.ID = r.nextID
	r.nextID++
	r.customers[customer.ID] = &customer
	return customer, nil
}

func (r *memRepo) Update(_ context.Context, id int64, customer Customer) error {
	existing, ok := r.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	customer.ID = id
	*existing = customer
	return nil
}

func (r *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	c, ok := r.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.customers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.customers, id)
	return nil
}

func (r *memRepo) SaleCount(_ context.Context, id int64) (int, error) {
	return r.sales[id], nil
}

func TestDuplicateDocumentRejected(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Create(context.Background(), Customer{Name: "The Corner Bar", Document: "B-55501", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Customer{Name: "Another Bar", Document: "B-55501", IsActive: true})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteCustomerWithSales(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	customer, err := svc.Create(context.Background(), Customer{Name: "Hotel Miramar", Document: "B-55502", IsActive: true})
	require.NoError(t, err)
	repo.sales[customer.ID] = 7

	err = svc.Delete(context.Background(), customer.ID)
	require.ErrorIs(t, err, shared.ErrInUse)

	require.NoError(t, svc.SetActive(context.Background(), customer.ID, false))
	got, err := svc.Get(context.Background(), customer.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	repo.sales[customer.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), customer.ID))
}
