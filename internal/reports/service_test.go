package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memRepo struct {
	sales     OrderTotals
	purchases OrderTotals
	inventory InventoryTotals
	top       []ProductSales
	countersE error
}

func (r *memRepo) SaleTotals(context.Context, time.Time, time.Time) (OrderTotals, error) {
	return r.sales, nil
}

func (r *memRepo) PurchaseTotals(context.Context, time.Time, time.Time) (OrderTotals, error) {
	return r.purchases, nil
}

func (r *memRepo) InventoryTotals(context.Context) (InventoryTotals, error) {
	return r.inventory, nil
}

func (r *memRepo) TopProducts(context.Context, time.Time, time.Time, int) ([]ProductSales, error) {
	return r.top, nil
}

func (r *memRepo) Counters(context.Context, time.Time, time.Time) (int, int, int, int, error) {
	if r.countersE != nil {
		return 0, 0, 0, 0, r.countersE
	}
	return 2, 7, 1, 40, nil
}

func TestSummaryAssemblesAllBlocks(t *testing.T) {
	repo := &memRepo{
		sales:     OrderTotals{Count: 12, Total: 340.5},
		purchases: OrderTotals{Count: 3, Total: 900},
		inventory: InventoryTotals{Units: 480, PurchaseValue: 2100, SaleValue: 3600},
		top:       []ProductSales{{ProductID: 1, Name: "Rye Whiskey 750", Quantity: 18, Total: 270}},
	}
	svc := NewService(repo)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	summary, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)

	require.Equal(t, 12, summary.Sales.Count)
	require.Equal(t, 900.0, summary.Purchases.Total)
	require.Equal(t, 480, summary.Inventory.Units)
	require.Len(t, summary.TopProducts, 1)
	require.Equal(t, 2, summary.LowStockCount)
	require.Equal(t, 7, summary.PendingSales)
	require.Equal(t, 40, summary.ActiveProducts)
	require.Equal(t, from, summary.Range.From)
}

func TestSummaryFailsWhenAnyQueryFails(t *testing.T) {
	repo := &memRepo{countersE: errors.New("connection reset")}
	svc := NewService(repo)

	_, err := svc.Summary(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
}
