package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/stockbar/stockbar/internal/masterdata/products"
)

// LowStockScanJob surfaces products at or below their minimum level so the
// back office can reorder.
type LowStockScanJob struct {
	products *products.Service
	logger   *slog.Logger
}

// NewLowStockScanJob constructs the job.
func NewLowStockScanJob(svc *products.Service, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{products: svc, logger: logger}
}

// Handle runs one scan.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	low, err := j.products.ListBelowMinStock(ctx)
	if err != nil {
		j.logger.Error("low stock scan", slog.Any("error", err))
		return err
	}
	for _, p := range low {
		j.logger.Warn("product below minimum stock",
			slog.Int64("product_id", p.ID),
			slog.String("name", p.Name),
			slog.Int("stock", p.Stock),
			slog.Int("min_stock", p.MinStock))
	}
	j.logger.Info("low stock scan done", slog.Int("flagged", len(low)))
	return nil
}
