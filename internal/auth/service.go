package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockbar/stockbar/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *TokenStore
	recovery *RecoveryStore
	audit    AuditPort
	notify   RecoveryNotifier
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RecoveryNotifier dispatches recovery codes to the account owner, typically
// through the background mail queue.
type RecoveryNotifier interface {
	SendRecoveryCode(ctx context.Context, email, code string) error
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore, recovery *RecoveryStore, audit AuditPort, notify RecoveryNotifier) *Service {
	return &Service{repo: repo, tokens: tokens, recovery: recovery, audit: audit, notify: notify}
}

// Authenticate validates email/password credentials. Unknown accounts,
// inactive accounts and wrong passwords all collapse to the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.recordAudit(ctx, user.ID, "auth:login", user.ID)
	return user, token, nil
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, token string, userID int64) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	s.recordAudit(ctx, userID, "auth:logout", userID)
	return nil
}

// UserFromToken resolves a token to its full user record. Tokens held by
// deactivated accounts stop working immediately.
func (s *Service) UserFromToken(ctx context.Context, token string) (*User, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

// StartRecovery issues a recovery code for the account. The code is returned
// to the caller for delivery.
func (s *Service) StartRecovery(ctx context.Context, email string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", shared.ErrNotFound
	}
	if !user.IsActive {
		return "", shared.ErrNotFound
	}
	code, err := s.recovery.Issue(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if s.notify != nil {
		// Delivery is best effort, the code is also surfaced to the caller.
		_ = s.notify.SendRecoveryCode(ctx, user.Email, code)
	}
	s.recordAudit(ctx, user.ID, "auth:recovery:start", user.ID)
	return code, nil
}

// ConfirmRecovery consumes the code and replaces the account password.
func (s *Service) ConfirmRecovery(ctx context.Context, email, code, newPassword string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return ErrRecoveryInvalid
	}
	if err := s.recovery.Consume(ctx, user.Email, code); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, user.ID, "auth:recovery:confirm", user.ID)
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
