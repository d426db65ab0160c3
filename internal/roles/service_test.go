package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockbar/stockbar/internal/shared"
)

type memRepo struct {
	roles     map[int64]*Role
	userCount map[int64]int
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		roles: map[int64]*Role{
			shared.AdminRoleID: {ID: shared.AdminRoleID, Name: "administrator", IsActive: true},
		},
		userCount: map[int64]int{shared.AdminRoleID: 1},
		nextID:    2,
	}
}

func (r *memRepo) List(context.Context) ([]Role, error) {
	var out []Role
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *memRepo) Create(_ context.Context, name, description string) (int64, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return 0, shared.ErrDuplicate
		}
	}
	id := r.nextID
	r.nextID++
	r.roles[id] = &Role{ID: id, Name: name, Description: description, IsActive: true}
	return id, nil
}

func (r *memRepo) Update(_ context.Context, id int64, name, description string, isActive bool) error {
	role, ok := r.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	role.Name = name
	role.Description = description
	role.IsActive = isActive
	return nil
}

func (r *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	role, ok := r.roles[id]
	if !ok {
		return shared.ErrNotFound
	}
	role.IsActive = active
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *memRepo) UserCount(_ context.Context, id int64) (int, error) {
	return r.userCount[id], nil
}

func TestCreateAndUpdateRole(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	role, err := svc.Create(context.Background(), "cashier", "front desk")
	require.NoError(t, err)
	require.True(t, role.IsActive)

	updated, err := svc.Update(context.Background(), role.ID, "cashier", "front desk", false)
	require.NoError(t, err)
	require.False(t, updated.IsActive)
}

func TestDuplicateRoleName(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Create(context.Background(), "cashier", "")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "cashier", "")
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestAdminRoleIsProtected(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.Update(context.Background(), shared.AdminRoleID, "renamed", "", true)
	require.ErrorIs(t, err, shared.ErrProtected)

	_, err = svc.SetActive(context.Background(), shared.AdminRoleID, false)
	require.ErrorIs(t, err, shared.ErrProtected)

	err = svc.Delete(context.Background(), shared.AdminRoleID)
	require.ErrorIs(t, err, shared.ErrProtected)
}

func TestDeleteRoleInUse(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	role, err := svc.Create(context.Background(), "cashier", "")
	require.NoError(t, err)
	repo.userCount[role.ID] = 3

	err = svc.Delete(context.Background(), role.ID)
	require.ErrorIs(t, err, shared.ErrInUse)

	repo.userCount[role.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), role.ID))
}
