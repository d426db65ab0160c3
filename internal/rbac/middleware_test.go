package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockbar/stockbar/internal/shared"
)

type fakeChecker struct {
	perms map[int64][]string
	err   error
}

func (f *fakeChecker) RolePermissions(_ context.Context, roleID int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.perms[roleID], nil
}

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, principal *shared.Principal) *httptest.ResponseRecorder {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if principal != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAnyAllowsHolderOfOnePermission(t *testing.T) {
	mw := Middleware{Service: &fakeChecker{perms: map[int64][]string{5: {"sales.view"}}}}

	rec := doRequest(t, mw.RequireAny("sales.view", "sales.manage"), &shared.Principal{UserID: 2, RoleID: 5})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := Middleware{Service: &fakeChecker{perms: map[int64][]string{5: {"sales.view"}}}}

	rec := doRequest(t, mw.RequireAll("sales.view", "sales.void"), &shared.Principal{UserID: 2, RoleID: 5})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMissingPermissionIsForbidden(t *testing.T) {
	mw := Middleware{Service: &fakeChecker{perms: map[int64][]string{}}}

	rec := doRequest(t, mw.RequireAny("users.manage"), &shared.Principal{UserID: 2, RoleID: 5})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminBypassesChecks(t *testing.T) {
	mw := Middleware{Service: &fakeChecker{err: errors.New("should not be called")}}

	rec := doRequest(t, mw.RequireAll("users.manage", "roles.manage"), &shared.Principal{UserID: 1, RoleID: shared.AdminRoleID})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUnauthenticatedIsRejected(t *testing.T) {
	mw := Middleware{Service: &fakeChecker{}}

	rec := doRequest(t, mw.RequireAny("sales.view"), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckerFailureIsServerError(t *testing.T) {
	mw := Middleware{Service: &fakeChecker{err: errors.New("redis down")}}

	rec := doRequest(t, mw.RequireAny("sales.view"), &shared.Principal{UserID: 2, RoleID: 5})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
