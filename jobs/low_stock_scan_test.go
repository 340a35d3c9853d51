package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/colmado-pos/colmado-pos/internal/catalog"
)

type listerFake struct {
	low []catalog.Product
}

func (l *listerFake) LowStock(_ context.Context) ([]catalog.Product, error) {
	return l.low, nil
}

type notifierFake struct {
	sent []SendEmailPayload
}

func (n *notifierFake) EnqueueSendEmail(_ context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	n.sent = append(n.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func TestLowStockScanNotifies(t *testing.T) {
	notifier := &notifierFake{}
	job := NewLowStockScanJob(
		&listerFake{low: []catalog.Product{{Code: "P-1", Name: "Refresco", Stock: 2, MinStock: 10}}},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
		notifier,
		"dueno@example.com",
	)

	task, err := NewLowStockScanTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, notifier.sent, 1)
	require.Equal(t, "dueno@example.com", notifier.sent[0].To)
}

func TestLowStockScanQuietWhenStocked(t *testing.T) {
	notifier := &notifierFake{}
	job := NewLowStockScanJob(
		&listerFake{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
		notifier,
		"dueno@example.com",
	)

	task, err := NewLowStockScanTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, notifier.sent)
}
