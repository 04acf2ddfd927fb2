package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	PriorityLow    InsightPriority = "low"
	PriorityMedium InsightPriority = "medium"
	PriorityHigh   InsightPriority = "high"
)

// CategoryOther is assigned when no better category is known.
const CategoryOther = "Other"

type (
	Period          string
	InsightPriority string

	User struct {
		ID        string    `json:"id"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Account struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		Name          string    `json:"name"`
		Type          string    `json:"type"` // checking, savings, credit, investment
		Balance       Money     `json:"balance"`
		Institution   string    `json:"institution"`
		AccountNumber string    `json:"accountNumber,omitempty"`
		IsActive      bool      `json:"isActive"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	Transaction struct {
		ID            string         `json:"id"`
		AccountID     string         `json:"accountId"`
		Amount        Money          `json:"amount"`
		Description   string         `json:"description"`
		Merchant      string         `json:"merchant,omitempty"`
		Category      string         `json:"category"`
		Subcategory   string         `json:"subcategory,omitempty"`
		Date          time.Time      `json:"date"`
		IsIncome      bool           `json:"isIncome"`
		AICategorized bool           `json:"aiCategorized"`
		Metadata      map[string]any `json:"metadata,omitempty"`
		CreatedAt     time.Time      `json:"createdAt"`
	}

	Budget struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Category  string    `json:"category"`
		Amount    Money     `json:"amount"`
		Period    Period    `json:"period"`
		IsActive  bool      `json:"isActive"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Goal struct {
		ID            string     `json:"id"`
		UserID        string     `json:"userId"`
		Name          string     `json:"name"`
		TargetAmount  Money      `json:"targetAmount"`
		CurrentAmount Money      `json:"currentAmount"`
		TargetDate    *time.Time `json:"targetDate,omitempty"`
		Category      string     `json:"category"`
		IsActive      bool       `json:"isActive"`
		CreatedAt     time.Time  `json:"createdAt"`
	}

	Investment struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		AccountID     string    `json:"accountId,omitempty"`
		Symbol        string    `json:"symbol"`
		Name          string    `json:"name"`
		Quantity      string    `json:"quantity"`
		CurrentPrice  Money     `json:"currentPrice"`
		PurchasePrice Money     `json:"purchasePrice"`
		PurchaseDate  time.Time `json:"purchaseDate"`
		Type          string    `json:"type"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	Insight struct {
		ID        string          `json:"id"`
		UserID    string          `json:"userId"`
		Type      string          `json:"type"`
		Title     string          `json:"title"`
		Content   string          `json:"content"`
		Priority  InsightPriority `json:"priority"`
		IsRead    bool            `json:"isRead"`
		Metadata  map[string]any  `json:"metadata,omitempty"`
		CreatedAt time.Time       `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyAccount     = errors.New("empty account")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidPeriod    = errors.New("invalid period")
)

// MaxDescriptionLen bounds free-text descriptions.
const MaxDescriptionLen = 200

func (p Period) Valid() bool {
	return p == Monthly || p == Yearly
}

func (p InsightPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Validate checks the fields a transaction needs before it is stored.
// The category may still be empty at this point; creation fills it in.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > MaxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Amount.IsZero() || !t.Amount.InRange() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.Cents < 0 || !b.Amount.InRange() {
		return ErrInvalidAmount
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
