package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockbar/stockbar/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user User) (int64, error)
	Update(ctx context.Context, user User) error
	SetPassword(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	ActiveAdminCount(ctx context.Context) (int, error)
}

// Service handles user business logic. The system always keeps at least one
// active administrator.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Username string
	Email    string
	FullName string
	Password string
	RoleID   int64
	IsActive bool
}

// UpdateUserInput describes profile changes.
type UpdateUserInput struct {
	Username string
	Email    string
	FullName string
	RoleID   int64
	IsActive bool
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new account with a hashed password.
func (s *Service) Create(ctx context.Context, input CreateUserInput, actorID int64) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, User{
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: string(hash),
		RoleID:       input.RoleID,
		IsActive:     input.IsActive,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "user:create", id)
	return s.repo.Get(ctx, id)
}

// Update modifies an account profile. Demoting or deactivating the last
// active administrator is refused.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput, actorID int64) (*User, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	losesAdmin := existing.RoleID == shared.AdminRoleID && existing.IsActive &&
		(input.RoleID != shared.AdminRoleID || !input.IsActive)
	if losesAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, User{
		ID:       id,
		Username: input.Username,
		Email:    input.Email,
		FullName: input.FullName,
		RoleID:   input.RoleID,
		IsActive: input.IsActive,
	}); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "user:update", id)
	return s.repo.Get(ctx, id)
}

// ChangePassword sets a new password. Only the account owner or an
// administrator may do this.
func (s *Service) ChangePassword(ctx context.Context, id int64, newPassword string, actor *shared.Principal) error {
	if actor == nil || (actor.UserID != id && !actor.IsAdmin()) {
		return fmt.Errorf("%w: cannot change another user's password", shared.ErrProtected)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SetPassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "user:password", id)
	return nil
}

// SetActive toggles an account. Deactivating the last active administrator is
// refused.
func (s *Service) SetActive(ctx context.Context, id int64, active bool, actorID int64) (*User, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !active && existing.RoleID == shared.AdminRoleID && existing.IsActive {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "user:status", id)
	return s.repo.Get(ctx, id)
}

// Delete removes an account. The last active administrator cannot be removed,
// and nobody can remove themselves.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if id == actorID {
		return fmt.Errorf("%w: cannot delete your own account", shared.ErrProtected)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.RoleID == shared.AdminRoleID && existing.IsActive {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user:delete", id)
	return nil
}

func (s *Service) ensureAnotherAdmin(ctx context.Context) error {
	count, err := s.repo.ActiveAdminCount(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return fmt.Errorf("%w: at least one active administrator is required", shared.ErrProtected)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", userID),
	})
}
