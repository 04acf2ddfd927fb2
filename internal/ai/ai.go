// Package ai wraps the language model used to categorize transactions, read
// receipts and suggest spending insights. Callers depend on the small
// interfaces below; Gemini and Disabled are the two implementations.
package ai

import (
	"context"
	"errors"
	"math"

	"finboard/internal/core"
)

// ErrNotConfigured is returned when no model credentials were provided.
var ErrNotConfigured = errors.New("ai advisor not configured")

// Categories offered to the model. Income is only valid for categorization.
var Categories = []string{
	"Food & Dining", "Shopping", "Transportation", "Bills & Utilities", "Entertainment",
	"Health & Fitness", "Travel", "Education", "Business", "Income", core.CategoryOther,
}

// FallbackConfidence is reported when categorization could not run.
const FallbackConfidence = 0.1

// MaxInsights caps the suggestions kept from one generation.
const MaxInsights = 5

type InsightType string

const (
	InsightWarning InsightType = "warning"
	InsightTip     InsightType = "tip"
	InsightTrend   InsightType = "trend"
)

func (t InsightType) Valid() bool {
	return t == InsightWarning || t == InsightTip || t == InsightTrend
}

type (
	Categorization struct {
		Category    string  `json:"category"`
		Subcategory string  `json:"subcategory,omitempty"`
		Confidence  float64 `json:"confidence"`
		IsIncome    bool    `json:"isIncome"`
	}

	ReceiptItem struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Quantity float64 `json:"quantity,omitempty"`
	}

	ReceiptAnalysis struct {
		Merchant    string        `json:"merchant"`
		Amount      float64       `json:"amount"`
		Date        string        `json:"date"`
		Category    string        `json:"category"`
		Subcategory string        `json:"subcategory,omitempty"`
		Description string        `json:"description"`
		Items       []ReceiptItem `json:"items,omitempty"`
	}

	InsightSuggestion struct {
		Type        InsightType          `json:"type"`
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Category    string               `json:"category,omitempty"`
		Amount      *float64             `json:"amount,omitempty"`
		Priority    core.InsightPriority `json:"priority"`
	}

	// InsightRequest is the data an insight generation looks at.
	InsightRequest struct {
		User         core.User
		Transactions []core.Transaction
		Budgets      []core.Budget
	}
)

// Categorizer never fails: on any problem it answers with Fallback.
type Categorizer interface {
	Categorize(ctx context.Context, description, merchant string, amount core.Money) Categorization
}

// FallibleCategorizer reports failures instead of hiding them, so wrappers
// such as CachedCategorizer can tell a real answer from a fallback.
type FallibleCategorizer interface {
	TryCategorize(ctx context.Context, description, merchant string, amount core.Money) (Categorization, error)
}

type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (ReceiptAnalysis, error)
}

// InsightGenerator returns at most MaxInsights suggestions and an empty
// slice when generation fails.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, req InsightRequest) []InsightSuggestion
}

type Advisor interface {
	Categorizer
	FallibleCategorizer
	ReceiptAnalyzer
	InsightGenerator
}

// Fallback is the categorization used whenever the model cannot answer.
func Fallback(amount core.Money) Categorization {
	return Categorization{
		Category:   core.CategoryOther,
		Confidence: FallbackConfidence,
		IsIncome:   amount.Cents > 0,
	}
}

// normalize clamps confidence and fills an empty category.
func (c Categorization) normalize() Categorization {
	if c.Category == "" {
		c.Category = core.CategoryOther
	}
	switch {
	case math.IsNaN(c.Confidence), c.Confidence < 0:
		c.Confidence = 0
	case c.Confidence > 1:
		c.Confidence = 1
	}
	return c
}

func (r ReceiptAnalysis) validate() error {
	if r.Merchant == "" {
		return errors.New("receipt analysis missing merchant")
	}
	if !(r.Amount > 0) {
		return errors.New("receipt analysis has non-positive amount")
	}
	return nil
}

// keepValidInsights drops malformed suggestions and caps the result.
func keepValidInsights(in []InsightSuggestion) []InsightSuggestion {
	out := make([]InsightSuggestion, 0, min(len(in), MaxInsights))
	for _, s := range in {
		if !s.Type.Valid() || !s.Priority.Valid() || s.Title == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxInsights {
			break
		}
	}
	return out
}

var _ Advisor = Disabled{}

// Disabled is the advisor used when no API key is configured.
type Disabled struct{}

func (Disabled) Categorize(_ context.Context, _, _ string, amount core.Money) Categorization {
	return Fallback(amount)
}

func (Disabled) TryCategorize(context.Context, string, string, core.Money) (Categorization, error) {
	return Categorization{}, ErrNotConfigured
}

func (Disabled) AnalyzeReceipt(context.Context, []byte, string) (ReceiptAnalysis, error) {
	return ReceiptAnalysis{}, ErrNotConfigured
}

func (Disabled) GenerateInsights(context.Context, InsightRequest) []InsightSuggestion {
	return []InsightSuggestion{}
}
