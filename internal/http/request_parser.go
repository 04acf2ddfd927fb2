// Package http serves the finboard JSON API.
//
// This file decodes and validates request bodies and query parameters.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"finboard/internal/core"
	"finboard/internal/services"
)

const (
	maxJSONBody    = 1 << 20
	maxReceiptBody = 15 << 20

	defaultTrendDays = 30
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// TransactionPayload is the body of POST /api/transactions.
type TransactionPayload struct {
	AccountID   string         `json:"accountId" validate:"required,notblank,max=64"`
	Amount      *core.Money    `json:"amount" validate:"required"`
	Description string         `json:"description" validate:"required,notblank,max=500"`
	Merchant    string         `json:"merchant" validate:"max=200"`
	Category    string         `json:"category" validate:"max=100"`
	Subcategory string         `json:"subcategory" validate:"max=100"`
	Date        string         `json:"date"`
	IsIncome    bool           `json:"isIncome"`
	Metadata    map[string]any `json:"metadata"`
}

// Input converts the payload into a service input.
func (p TransactionPayload) Input() (services.TransactionInput, error) {
	in := services.TransactionInput{
		AccountID:   strings.TrimSpace(p.AccountID),
		Amount:      *p.Amount,
		Description: sanitizeInput(p.Description),
		Merchant:    sanitizeInput(p.Merchant),
		Category:    sanitizeInput(p.Category),
		Subcategory: sanitizeInput(p.Subcategory),
		IsIncome:    p.IsIncome,
		Metadata:    p.Metadata,
	}
	if strings.TrimSpace(p.Date) != "" {
		d, err := services.ParseDateBound(p.Date, false)
		if err != nil {
			return services.TransactionInput{}, err
		}
		in.Date = d
	}
	return in, nil
}

// BudgetPayload is the body of POST /api/budgets.
type BudgetPayload struct {
	UserID   string      `json:"userId" validate:"required,notblank,max=64"`
	Category string      `json:"category" validate:"required,notblank,max=100"`
	Amount   *core.Money `json:"amount" validate:"required"`
	Period   string      `json:"period" validate:"omitempty,oneof=monthly yearly"`
}

func (p BudgetPayload) Budget() core.Budget {
	return core.Budget{
		UserID:   strings.TrimSpace(p.UserID),
		Category: sanitizeInput(p.Category),
		Amount:   *p.Amount,
		Period:   core.Period(p.Period),
	}
}

// ReceiptPayload is the body of POST /api/receipts/analyze.
type ReceiptPayload struct {
	Image  string `json:"image" validate:"required,notblank"`
	UserID string `json:"userId" validate:"required,notblank"`
}

// fieldError is a failed struct validation. missing is set when a required
// field was absent or blank.
type fieldError struct {
	msg     string
	missing bool
}

func (e *fieldError) Error() string { return e.msg }

// isMissingField reports whether err came from a required field left empty.
func isMissingField(err error) bool {
	var fe *fieldError
	return errors.As(err, &fe) && fe.missing
}

// decodeJSON reads at most limit bytes of JSON into dst and validates it.
// Every failure wraps services.ErrInvalidInput.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", services.ErrInvalidInput, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", services.ErrInvalidInput)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", services.ErrInvalidInput, err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", services.ErrInvalidInput, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) *fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &fieldError{msg: err.Error()}
	}
	out := &fieldError{}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			out.missing = true
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	out.msg = strings.Join(msgs, "; ")
	return out
}

// parseTransactionFilter reads category, accountId, startDate and endDate.
func parseTransactionFilter(r *http.Request) (services.TransactionFilter, error) {
	q := r.URL.Query()
	f := services.TransactionFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		AccountID: strings.TrimSpace(q.Get("accountId")),
	}
	if v := q.Get("startDate"); strings.TrimSpace(v) != "" {
		start, err := services.ParseDateBound(v, false)
		if err != nil {
			return f, err
		}
		f.Start = &start
	}
	if v := q.Get("endDate"); strings.TrimSpace(v) != "" {
		end, err := services.ParseDateBound(v, true)
		if err != nil {
			return f, err
		}
		f.End = &end
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return f, fmt.Errorf("%w: endDate is before startDate", services.ErrInvalidInput)
	}
	return f, nil
}

// parseDays reads the trends window; absent means 30.
func parseDays(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("days"))
	if v == "" {
		return defaultTrendDays, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 {
		return 0, fmt.Errorf("%w: days must be a positive whole number", services.ErrInvalidInput)
	}
	return days, nil
}

// sanitizeInput trims whitespace and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
