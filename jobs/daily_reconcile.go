package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colmado-pos/colmado-pos/internal/observability"
	"github.com/colmado-pos/colmado-pos/internal/sales"
)

// ReportInvalidator drops cached reports after the rollups move.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// DailyReconcileJob refolds the daily sales rollups for recent business
// dates. Checkout already refolds its own date inside the transaction; this
// pass exists to heal any divergence, for instance after a manual data fix.
type DailyReconcileJob struct {
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Calendar *sales.BusinessCalendar
	Reports  ReportInvalidator
	clock    func() time.Time
}

func NewDailyReconcileJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics, cal *sales.BusinessCalendar, reports ReportInvalidator) *DailyReconcileJob {
	return &DailyReconcileJob{
		Pool:     pool,
		Logger:   logger,
		Metrics:  metrics,
		Calendar: cal,
		Reports:  reports,
		clock:    time.Now,
	}
}

// Handle executes the reconcile pass.
func (j *DailyReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("daily reconcile: handler not configured")
	}
	var payload DailyReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Days <= 0 {
		payload.Days = 2
	}

	now := j.clock()
	reconciled := 0
	for i := 0; i < payload.Days; i++ {
		date := j.Calendar.DateOf(now.AddDate(0, 0, -i))
		if err := j.refold(ctx, date); err != nil {
			j.observe("error")
			return fmt.Errorf("reconcile %s: %w", date, err)
		}
		reconciled++
	}

	if j.Reports != nil {
		if err := j.Reports.Invalidate(ctx); err != nil {
			j.Logger.Warn("report cache invalidation failed", "error", err)
		}
	}

	j.observe("ok")
	j.Logger.Info("daily reconcile complete", "dates", reconciled)
	return nil
}

func (j *DailyReconcileJob) refold(ctx context.Context, date string) error {
	_, err := j.Pool.Exec(ctx, `
		INSERT INTO daily_sales (business_date, total_sales, total_amount,
			cash_sales, card_sales, credit_sales, updated_at)
		SELECT business_date,
		       COUNT(*),
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'cash'), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'card'), 0),
		       COALESCE(SUM(total) FILTER (WHERE payment_method = 'credit'), 0),
		       NOW()
		FROM sales
		WHERE business_date = $1
		GROUP BY business_date
		ON CONFLICT (business_date) DO UPDATE
		SET total_sales = EXCLUDED.total_sales,
		    total_amount = EXCLUDED.total_amount,
		    cash_sales = EXCLUDED.cash_sales,
		    card_sales = EXCLUDED.card_sales,
		    credit_sales = EXCLUDED.credit_sales,
		    updated_at = NOW()`,
		date)
	return err
}

func (j *DailyReconcileJob) observe(outcome string) {
	if j.Metrics != nil {
		j.Metrics.ObserveJob(TaskDailyReconcile, outcome)
	}
}
