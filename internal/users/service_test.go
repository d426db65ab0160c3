package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockbar/stockbar/internal/shared"
)

type memRepo struct {
	users  map[int64]*User
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users: map[int64]*User{
			1: {ID: 1, Username: "root", Email: "root@stockbar.test", RoleID: shared.AdminRoleID, IsActive: true},
		},
		nextID: 2,
	}
}

func (r *memRepo) List(context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memRepo) Create(_ context.Context, user User) (int64, error) {
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return 0, shared.ErrDuplicate
		}
	}
	id := r.nextID
	r.nextID++
	user.ID = id
	r.users[id] = &user
	return id, nil
}

func (r *memRepo) Update(_ context.Context, user User) error {
	existing, ok := r.users[user.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.Username = user.Username
	existing.Email = user.Email
	existing.FullName = user.FullName
	existing.RoleID = user.RoleID
	existing.IsActive = user.IsActive
	return nil
}

func (r *memRepo) SetPassword(_ context.Context, id int64, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memRepo) ActiveAdminCount(context.Context) (int, error) {
	count := 0
	for _, u := range r.users {
		if u.RoleID == shared.AdminRoleID && u.IsActive {
			count++
		}
	}
	return count, nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "cash1", Email: "cash1@stockbar.test", FullName: "Cashier One",
		Password: "secret password", RoleID: 2, IsActive: true,
	}, 1)
	require.NoError(t, err)
	require.NotEqual(t, "secret password", repo.users[user.ID].PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("secret password")))
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	_, err := svc.Create(context.Background(), CreateUserInput{
		Username: "other", Email: "root@stockbar.test", Password: "secret password", RoleID: 2,
	}, 1)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestLastAdminCannotBeDemoted(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	_, err := svc.Update(context.Background(), 1, UpdateUserInput{
		Username: "root", Email: "root@stockbar.test", RoleID: 2, IsActive: true,
	}, 1)
	require.ErrorIs(t, err, shared.ErrProtected)

	_, err = svc.SetActive(context.Background(), 1, false, 1)
	require.ErrorIs(t, err, shared.ErrProtected)
}

func TestAdminCanBeDemotedWhenAnotherExists(t *testing.T) {
	repo := newMemRepo()
	repo.users[5] = &User{ID: 5, Username: "root2", Email: "root2@stockbar.test", RoleID: shared.AdminRoleID, IsActive: true}
	svc := NewService(repo, nil)

	updated, err := svc.Update(context.Background(), 1, UpdateUserInput{
		Username: "root", Email: "root@stockbar.test", RoleID: 2, IsActive: true,
	}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.RoleID)
}

func TestDeleteGuards(t *testing.T) {
	repo := newMemRepo()
	repo.users[2] = &User{ID: 2, Username: "cash1", Email: "cash1@stockbar.test", RoleID: 2, IsActive: true}
	svc := NewService(repo, nil)

	err := svc.Delete(context.Background(), 2, 2)
	require.ErrorIs(t, err, shared.ErrProtected)

	err = svc.Delete(context.Background(), 1, 2)
	require.ErrorIs(t, err, shared.ErrProtected)

	require.NoError(t, svc.Delete(context.Background(), 2, 1))
}

func TestChangePasswordOwnership(t *testing.T) {
	repo := newMemRepo()
	repo.users[2] = &User{ID: 2, Username: "cash1", Email: "cash1@stockbar.test", RoleID: 2, IsActive: true}
	svc := NewService(repo, nil)

	self := &shared.Principal{UserID: 2, RoleID: 2}
	other := &shared.Principal{UserID: 3, RoleID: 2}
	admin := &shared.Principal{UserID: 1, RoleID: shared.AdminRoleID}

	require.NoError(t, svc.ChangePassword(context.Background(), 2, "new password 1", self))
	require.NoError(t, svc.ChangePassword(context.Background(), 2, "new password 2", admin))

	err := svc.ChangePassword(context.Background(), 2, "new password 3", other)
	require.ErrorIs(t, err, shared.ErrProtected)
}
