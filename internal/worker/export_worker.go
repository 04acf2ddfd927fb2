// Package worker turns transaction events into spreadsheet rows.
package worker

import (
	"context"
	"fmt"

	"finboard/internal/amqp"
	"finboard/internal/log"
	"finboard/internal/sheets"
	"finboard/internal/store"
)

// ExportWorker copies newly created transactions to a TransactionExporter.
type ExportWorker struct {
	transactions store.TransactionStore
	accounts     store.AccountStore
	exporter     sheets.TransactionExporter
	logger       *log.Logger
}

func NewExportWorker(transactions store.TransactionStore, accounts store.AccountStore, exporter sheets.TransactionExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		transactions: transactions,
		accounts:     accounts,
		exporter:     exporter,
		logger:       logger.WithComponent(log.ComponentWorker),
	}
}

// Handle exports the transaction named by ev. A nil return acknowledges the
// event; an error asks for redelivery.
func (w *ExportWorker) Handle(ctx context.Context, ev amqp.TransactionEvent) error {
	if ev.Type != amqp.EventTransactionCreated {
		w.logger.DebugContext(ctx, "Ignoring event", "type", ev.Type)
		return nil
	}

	tx, ok, err := w.transactions.GetTransaction(ctx, ev.TransactionID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", ev.TransactionID, err)
	}
	if !ok {
		// redelivery cannot make it appear
		w.logger.WarnContext(ctx, "Transaction not found, dropping event",
			log.FieldTransactionID, ev.TransactionID,
			log.FieldUserID, ev.UserID)
		return nil
	}

	accountName := tx.AccountID
	if acc, ok, err := w.accounts.GetAccount(ctx, tx.AccountID); err != nil {
		return fmt.Errorf("load account %s: %w", tx.AccountID, err)
	} else if ok {
		accountName = acc.Name
	}

	ref, err := w.exporter.ExportTransaction(ctx, sheets.RowFromTransaction(tx, accountName))
	if err != nil {
		return fmt.Errorf("export transaction %s: %w", tx.ID, err)
	}

	w.logger.InfoContext(ctx, "Transaction exported",
		log.FieldTransactionID, tx.ID,
		log.FieldUserID, ev.UserID,
		"row_ref", ref)
	return nil
}
