package customers

import (
	"context"
	"fmt"

	mdshared "github.com/stockbar/stockbar/internal/masterdata/shared"
	"github.com/stockbar/stockbar/internal/shared"
)

// Service handles customer business logic.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns customers matching the filters.
func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a customer.
func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	return s.repo.Create(ctx, customer)
}

// Update modifies a customer.
func (s *Service) Update(ctx context.Context, id int64, customer Customer) error {
	return s.repo.Update(ctx, id, customer)
}

// SetActive toggles a customer.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes a customer with no sale history. Customers that already
// bought something can only be deactivated.
func (s *Service) Delete(ctx context.Context, id int64) error {
	count, err := s.repo.SaleCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d sales reference this customer", shared.ErrInUse, count)
	}
	return s.repo.Delete(ctx, id)
}
