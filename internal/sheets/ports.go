// Package sheets exports stored transactions to a spreadsheet.
package sheets

import (
	"context"
	"strings"
	"time"

	"finboard/internal/core"
)

// TransactionExporter appends one transaction per call and returns a
// reference to the written row.
type TransactionExporter interface {
	ExportTransaction(ctx context.Context, row Row) (rowRef string, err error)
}

// Header lists the exported columns in order.
var Header = []string{"Date", "Description", "Merchant", "Category", "Subcategory", "Amount", "Account", "ID"}

// Row is the spreadsheet form of a transaction.
type Row struct {
	Date        time.Time
	Description string
	Merchant    string
	Category    string
	Subcategory string
	Amount      core.Money
	Account     string
	ID          string
}

func RowFromTransaction(tx core.Transaction, accountName string) Row {
	return Row{
		Date:        tx.Date,
		Description: tx.Description,
		Merchant:    tx.Merchant,
		Category:    tx.Category,
		Subcategory: tx.Subcategory,
		Amount:      tx.Amount,
		Account:     accountName,
		ID:          tx.ID,
	}
}

// Values renders the row in Header order. Amounts are plain numbers so the
// sheet can sum them; text cells go through EscapeText.
func (r Row) Values() []any {
	return []any{
		r.Date.Format(time.DateOnly),
		EscapeText(r.Description),
		EscapeText(r.Merchant),
		EscapeText(r.Category),
		EscapeText(r.Subcategory),
		r.Amount.Float(),
		EscapeText(r.Account),
		EscapeText(r.ID),
	}
}

// EscapeText prefixes s with an apostrophe when the sheet would otherwise
// parse it as a formula, so it is stored as literal text.
func EscapeText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
