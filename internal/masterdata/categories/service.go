package categories

import (
	"context"
	"fmt"

	mdshared "github.com/stockbar/stockbar/internal/masterdata/shared"
	"github.com/stockbar/stockbar/internal/shared"
)

// Service handles category business logic.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns categories matching the filters.
func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Category, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one category.
func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a category.
func (s *Service) Create(ctx context.Context, category Category) (Category, error) {
	return s.repo.Create(ctx, category)
}

// Update modifies a category.
func (s *Service) Update(ctx context.Context, id int64, category Category) error {
	return s.repo.Update(ctx, id, category)
}

// SetActive toggles a category's availability.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Delete removes a category that no product references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	count, err := s.repo.ProductCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d products reference this category", shared.ErrInUse, count)
	}
	return s.repo.Delete(ctx, id)
}
