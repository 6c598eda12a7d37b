// Package worker consumes ledger events and replays recorded transactions
// into the Sheets backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/events"
	"finanzas/internal/export"
	"finanzas/internal/ledger"
)

// TransactionGetter is the slice of the store the worker needs.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
}

type ExportWorker struct {
	store    TransactionGetter
	appender export.RowAppender
}

func NewExportWorker(store TransactionGetter, appender export.RowAppender) *ExportWorker {
	return &ExportWorker{store: store, appender: appender}
}

// Handle processes one ledger event. Events for rows that vanished before
// the worker got to them are acked and skipped; the backup sheet is
// append-only, so deletes are acked without action.
func (w *ExportWorker) Handle(ctx context.Context, e *events.TransactionEvent) error {
	if e.Action != events.ActionRecorded {
		slog.DebugContext(ctx, "Skipping non-recorded event", "action", e.Action, "transaction_id", e.TransactionID)
		return nil
	}

	t, err := w.store.GetTransaction(ctx, e.OwnerID, e.TransactionID)
	if errors.Is(err, ledger.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction gone before export, skipping",
			"transaction_id", e.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch transaction %s: %w", e.TransactionID, err)
	}

	if err := w.appender.AppendTransaction(ctx, t); err != nil {
		return fmt.Errorf("export transaction %s: %w", e.TransactionID, err)
	}
	return nil
}

// Run consumes events until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, client *events.Client) error {
	return client.Consume(ctx, func(e *events.TransactionEvent) error {
		return w.Handle(ctx, e)
	})
}
