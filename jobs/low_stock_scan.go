package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/colmado-pos/colmado-pos/internal/catalog"
	"github.com/colmado-pos/colmado-pos/internal/observability"
)

// LowStockLister is the catalog slice the scan reads.
type LowStockLister interface {
	LowStock(ctx context.Context) ([]catalog.Product, error)
}

// Notifier enqueues follow-up work, typically an email to the store owner.
type Notifier interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// LowStockScanJob flags products at or below their minimum stock so the
// owner can restock before the shelf runs dry.
type LowStockScanJob struct {
	Catalog    LowStockLister
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Notifier   Notifier
	AlertEmail string
}

func NewLowStockScanJob(cat LowStockLister, logger *slog.Logger, metrics *observability.Metrics, notifier Notifier, alertEmail string) *LowStockScanJob {
	return &LowStockScanJob{
		Catalog:    cat,
		Logger:     logger,
		Metrics:    metrics,
		Notifier:   notifier,
		AlertEmail: alertEmail,
	}
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("low stock scan: handler not configured")
	}

	low, err := j.Catalog.LowStock(ctx)
	if err != nil {
		j.observe("error")
		return fmt.Errorf("low stock scan: %w", err)
	}
	if len(low) == 0 {
		j.observe("ok")
		return nil
	}

	for _, p := range low {
		j.Logger.Warn("low stock", "code", p.Code, "name", p.Name, "stock", p.Stock, "min_stock", p.MinStock)
	}

	if j.Notifier != nil && j.AlertEmail != "" {
		body := fmt.Sprintf("%d products are at or below their minimum stock.", len(low))
		if _, err := j.Notifier.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      j.AlertEmail,
			Subject: "Low stock alert",
			Body:    body,
		}); err != nil {
			j.Logger.Warn("enqueue low stock email failed", "error", err)
		}
	}

	j.observe("ok")
	return nil
}

func (j *LowStockScanJob) observe(outcome string) {
	if j.Metrics != nil {
		j.Metrics.ObserveJob(TaskLowStockScan, outcome)
	}
}
