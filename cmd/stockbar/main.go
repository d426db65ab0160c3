package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockbar/stockbar/internal/app"
	"github.com/stockbar/stockbar/internal/auth"
	"github.com/stockbar/stockbar/internal/masterdata/categories"
	"github.com/stockbar/stockbar/internal/masterdata/products"
	"github.com/stockbar/stockbar/internal/masterdata/suppliers"
	"github.com/stockbar/stockbar/internal/observability"
	"github.com/stockbar/stockbar/internal/orders"
	"github.com/stockbar/stockbar/internal/platform/cache"
	"github.com/stockbar/stockbar/internal/platform/db"
	"github.com/stockbar/stockbar/internal/rbac"
	"github.com/stockbar/stockbar/internal/reports"
	"github.com/stockbar/stockbar/internal/roles"
	"github.com/stockbar/stockbar/internal/sales/customers"
	"github.com/stockbar/stockbar/internal/shared"
	"github.com/stockbar/stockbar/internal/users"
	"github.com/stockbar/stockbar/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	auditLogger := shared.NewAuditLogger(pool)
	idemStore := shared.NewIdempotencyStore(pool)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = jobsClient.Close() }()

	rbacService := rbac.NewService(pool, redisClient)
	rbacMW := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(
		auth.NewRepository(pool),
		auth.NewTokenStore(redisClient, cfg.TokenTTL),
		auth.NewRecoveryStore(redisClient, cfg.RecoveryTTL),
		auditLogger,
		jobsClient,
	)
	authHandler := auth.NewHandler(logger, authService)
	authMW := auth.Middleware{Service: authService}

	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool)), rbacService, rbacMW)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(pool), auditLogger), rbacMW)

	categoriesHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(pool)), rbacMW)
	productsHandler := products.NewHandler(logger, products.NewService(products.NewRepository(pool), auditLogger), rbacMW)
	suppliersHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool)), rbacMW)
	customersHandler := customers.NewHandler(logger, customers.NewService(customers.NewRepository(pool)), rbacMW)

	ordersService := orders.NewService(orders.NewRepository(pool), auditLogger, idemStore)
	purchasesHandler := orders.NewHandler(logger, ordersService, orders.KindPurchase, rbacMW)
	salesHandler := orders.NewHandler(logger, ordersService, orders.KindSale, rbacMW)

	reportsHandler := reports.NewHandler(logger, reports.NewService(reports.NewRepository(pool)), rbacMW)
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     authMW,
		AuthHandler:        authHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		CategoriesHandler:  categoriesHandler,
		ProductsHandler:    productsHandler,
		SuppliersHandler:   suppliersHandler,
		CustomersHandler:   customersHandler,
		PurchasesHandler:   purchasesHandler,
		SalesHandler:       salesHandler,
		ReportsHandler:     reportsHandler,
		PermissionsHandler: permissionsHandler,
		Metrics:            metrics,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.AppAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
