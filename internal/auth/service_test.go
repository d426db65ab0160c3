package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockbar/stockbar/internal/shared"
)

type memRepo struct {
	users map[string]*User
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*User, error) {
	for _, user := range r.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRepo) UpdatePassword(_ context.Context, userID int64, hash string) error {
	for _, user := range r.users {
		if user.ID == userID {
			user.PasswordHash = hash
			return nil
		}
	}
	return shared.ErrNotFound
}

func newTestService(t *testing.T) (*Service, *memRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memRepo{users: map[string]*User{
		"bar@stockbar.test": {
			ID: 1, Username: "bar", Email: "bar@stockbar.test", FullName: "Bar Keeper",
			RoleID: 2, RoleName: "seller", PasswordHash: string(hash), IsActive: true,
		},
		"gone@stockbar.test": {
			ID: 2, Username: "gone", Email: "gone@stockbar.test",
			RoleID: 2, PasswordHash: string(hash), IsActive: false,
		},
	}}

	svc := NewService(repo, NewTokenStore(client, time.Hour), NewRecoveryStore(client, 15*time.Minute), nil, nil)
	return svc, repo, mr
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, token, err := svc.Login(context.Background(), "bar@stockbar.test", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(1), user.ID)
	require.Equal(t, "seller", user.RoleName)

	resolved, err := svc.UserFromToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "bar@stockbar.test", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@stockbar.test", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "gone@stockbar.test", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, token, err := svc.Login(context.Background(), "bar@stockbar.test", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token, 1))

	_, err = svc.UserFromToken(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpires(t *testing.T) {
	svc, _, mr := newTestService(t)

	_, token, err := svc.Login(context.Background(), "bar@stockbar.test", "correct horse")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = svc.UserFromToken(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenStopsWorkingWhenUserDeactivated(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, token, err := svc.Login(context.Background(), "bar@stockbar.test", "correct horse")
	require.NoError(t, err)

	repo.users["bar@stockbar.test"].IsActive = false

	_, err = svc.UserFromToken(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRecoveryFlowResetsPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	code, err := svc.StartRecovery(context.Background(), "bar@stockbar.test")
	require.NoError(t, err)
	require.Len(t, code, 6)

	require.NoError(t, svc.ConfirmRecovery(context.Background(), "bar@stockbar.test", code, "a new password"))

	_, _, err = svc.Login(context.Background(), "bar@stockbar.test", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, _, err = svc.Login(context.Background(), "bar@stockbar.test", "a new password")
	require.NoError(t, err)

	// The code is single use.
	err = svc.ConfirmRecovery(context.Background(), "bar@stockbar.test", code, "another password")
	require.ErrorIs(t, err, ErrRecoveryInvalid)
}

func TestRecoveryRejectsWrongCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.StartRecovery(context.Background(), "bar@stockbar.test")
	require.NoError(t, err)

	err = svc.ConfirmRecovery(context.Background(), "bar@stockbar.test", "000000", "a new password")
	require.ErrorIs(t, err, ErrRecoveryInvalid)
}

func TestRecoveryUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.StartRecovery(context.Background(), "nobody@stockbar.test")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
