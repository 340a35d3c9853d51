package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDailyReconcile refolds recent daily sales rollups.
	TaskDailyReconcile = "pos:daily_reconcile"
	// TaskLowStockScan looks for products at or below their minimum stock.
	TaskLowStockScan = "pos:low_stock_scan"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// DailyReconcilePayload bounds the reconcile pass.
type DailyReconcilePayload struct {
	// Days is how many business dates back from today get refolded.
	Days int `json:"days"`
}

// NewDailyReconcileTask constructs an Asynq task.
func NewDailyReconcileTask(payload DailyReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailyReconcile, data), nil
}

// LowStockScanPayload is empty today but keeps the wire format extensible.
type LowStockScanPayload struct{}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask() (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: SMTP delivery lands with the notifications phase.
	slog.Default().Info("send email", "to", payload.To, "subject", payload.Subject)
	return nil
}
