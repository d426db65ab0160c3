package suppliers

import (
	"context"
	"fmt"

	mdshared "github.com/stockbar/stockbar/internal/masterdata/shared"
	"github.com/stockbar/stockbar/internal/shared"
)

// Service handles supplier business logic.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns suppliers matching the filters.
func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one supplier.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a supplier.
func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	return s.repo.Create(ctx, supplier)
}

// Update modifies a supplier.
func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) error {
	return s.repo.Update(ctx, id, supplier)
}

// SetActive toggles a supplier. Deactivated suppliers keep their purchase
// history but cannot receive new purchases.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes a supplier with no purchase history. Suppliers that already
// received purchases can only be deactivated.
func (s *Service) Delete(ctx context.Context, id int64) error {
	count, err := s.repo.PurchaseCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d purchases reference this supplier", shared.ErrInUse, count)
	}
	return s.repo.Delete(ctx, id)
}
