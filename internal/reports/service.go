package reports

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const topProductsLimit = 5

// RepositoryPort defines the aggregate queries used by the service.
type RepositoryPort interface {
	SaleTotals(ctx context.Context, from, to time.Time) (OrderTotals, error)
	PurchaseTotals(ctx context.Context, from, to time.Time) (OrderTotals, error)
	InventoryTotals(ctx context.Context) (InventoryTotals, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error)
	Counters(ctx context.Context, from, to time.Time) (int, int, int, int, error)
}

// Service assembles the dashboard.
type Service struct {
	repo RepositoryPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Summary gathers all dashboard blocks concurrently; any failing query fails
// the whole report.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	summary := &Summary{Range: DateRange{From: from, To: to}}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.SaleTotals(ctx, from, to)
		if err != nil {
			return err
		}
		summary.Sales = totals
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.PurchaseTotals(ctx, from, to)
		if err != nil {
			return err
		}
		summary.Purchases = totals
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.InventoryTotals(ctx)
		if err != nil {
			return err
		}
		summary.Inventory = totals
		return nil
	})
	g.Go(func() error {
		top, err := s.repo.TopProducts(ctx, from, to, topProductsLimit)
		if err != nil {
			return err
		}
		summary.TopProducts = top
		return nil
	})
	g.Go(func() error {
		lowStock, pending, voided, active, err := s.repo.Counters(ctx, from, to)
		if err != nil {
			return err
		}
		summary.LowStockCount = lowStock
		summary.PendingSales = pending
		summary.VoidedOrders = voided
		summary.ActiveProducts = active
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
