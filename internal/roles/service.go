package roles

import (
	"context"
	"fmt"

	"github.com/stockbar/stockbar/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (*Role, error)
	Create(ctx context.Context, name, description string) (int64, error)
	Update(ctx context.Context, id int64, name, description string, isActive bool) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	UserCount(ctx context.Context, id int64) (int, error)
}

// Service handles role business logic. The administrator role is immutable:
// it cannot be renamed, deactivated or deleted.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get returns one role.
func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new role.
func (s *Service) Create(ctx context.Context, name, description string) (*Role, error) {
	id, err := s.repo.Create(ctx, name, description)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update modifies a role.
func (s *Service) Update(ctx context.Context, id int64, name, description string, isActive bool) (*Role, error) {
	if id == shared.AdminRoleID {
		return nil, fmt.Errorf("%w: the administrator role cannot be modified", shared.ErrProtected)
	}
	if err := s.repo.Update(ctx, id, name, description, isActive); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// SetActive toggles a role's active flag.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*Role, error) {
	if id == shared.AdminRoleID {
		return nil, fmt.Errorf("%w: the administrator role cannot be deactivated", shared.ErrProtected)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a role that is not referenced by any user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == shared.AdminRoleID {
		return fmt.Errorf("%w: the administrator role cannot be deleted", shared.ErrProtected)
	}
	count, err := s.repo.UserCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d users still hold this role", shared.ErrInUse, count)
	}
	return s.repo.Delete(ctx, id)
}
