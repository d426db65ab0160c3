package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockbar/stockbar/internal/auth"
	"github.com/stockbar/stockbar/internal/masterdata/categories"
	"github.com/stockbar/stockbar/internal/masterdata/products"
	"github.com/stockbar/stockbar/internal/masterdata/suppliers"
	"github.com/stockbar/stockbar/internal/observability"
	"github.com/stockbar/stockbar/internal/orders"
	"github.com/stockbar/stockbar/internal/rbac"
	"github.com/stockbar/stockbar/internal/reports"
	"github.com/stockbar/stockbar/internal/roles"
	"github.com/stockbar/stockbar/internal/sales/customers"
	"github.com/stockbar/stockbar/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthMiddleware     auth.Middleware
	AuthHandler        *auth.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	CategoriesHandler  *categories.Handler
	ProductsHandler    *products.Handler
	SuppliersHandler   *suppliers.Handler
	CustomersHandler   *customers.Handler
	PurchasesHandler   *orders.Handler
	SalesHandler       *orders.Handler
	ReportsHandler     *reports.Handler
	PermissionsHandler *rbac.PermissionsHandler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with StockBar defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireAuth)

			params.AuthHandler.MountProtectedRoutes(r)
			r.Route("/roles", params.RolesHandler.MountRoutes)
			r.Route("/users", params.UsersHandler.MountRoutes)
			r.Route("/categories", params.CategoriesHandler.MountRoutes)
			r.Route("/products", params.ProductsHandler.MountRoutes)
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
			r.Route("/customers", params.CustomersHandler.MountRoutes)
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
			r.Route("/sales", params.SalesHandler.MountRoutes)
			r.Route("/reports", params.ReportsHandler.MountRoutes)
			if params.PermissionsHandler != nil {
				params.PermissionsHandler.MountRoutes(r)
			}
		})
	})

	return r
}
