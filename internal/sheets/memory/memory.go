// Package memory keeps exported rows in process, for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finboard/internal/sheets"
)

var _ sheets.TransactionExporter = (*Exporter)(nil)

type Exporter struct {
	mu   sync.Mutex
	rows []sheets.Row
}

func New() *Exporter {
	return &Exporter{}
}

// ExportTransaction records the row and returns a synthetic reference.
func (e *Exporter) ExportTransaction(ctx context.Context, row sheets.Row) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if row.ID == "" {
		return "", errors.New("row without transaction id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of everything exported so far.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.Row(nil), e.rows...)
}
