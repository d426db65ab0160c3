package roles

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/stockbar/stockbar/internal/rbac"
	"github.com/stockbar/stockbar/internal/shared"
)

type fakeGranter struct {
	granted   [][2]int64
	revoked   [][2]int64
	grantErr  error
	revokeErr error
}

func (f *fakeGranter) GrantPermission(_ context.Context, roleID, permissionID int64) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted = append(f.granted, [2]int64{roleID, permissionID})
	return nil
}

func (f *fakeGranter) RevokePermission(_ context.Context, roleID, permissionID int64) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, [2]int64{roleID, permissionID})
	return nil
}

func newPermissionRouter(t *testing.T, granter PermissionGranter) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, nil, granter, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/roles", h.MountRoutes)
	return r
}

func adminRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	principal := &shared.Principal{UserID: 1, RoleID: shared.AdminRoleID}
	return req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
}

func TestGrantPermissionToRole(t *testing.T) {
	granter := &fakeGranter{}
	router := newPermissionRouter(t, granter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/roles/3/permissions/7"))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, [][2]int64{{3, 7}}, granter.granted)
}

func TestRevokePermissionFromRole(t *testing.T) {
	granter := &fakeGranter{}
	router := newPermissionRouter(t, granter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodDelete, "/roles/3/permissions/7"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, [][2]int64{{3, 7}}, granter.revoked)
}

func TestRevokeMissingAssignmentIsNotFound(t *testing.T) {
	granter := &fakeGranter{revokeErr: shared.ErrNotFound}
	router := newPermissionRouter(t, granter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodDelete, "/roles/3/permissions/7"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, granter.revoked)
}

func TestGrantPermissionRejectsBadIDs(t *testing.T) {
	granter := &fakeGranter{}
	router := newPermissionRouter(t, granter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/roles/3/permissions/abc"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, granter.granted)
}
