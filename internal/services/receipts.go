package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finboard/internal/ai"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/store"
)

// ReceiptResult carries the analysis and, when the user has an account, the
// transaction created from it.
type ReceiptResult struct {
	Analysis    ai.ReceiptAnalysis `json:"analysis"`
	Transaction *core.Transaction  `json:"transaction,omitempty"`
}

type ReceiptService struct {
	analyzer     ai.ReceiptAnalyzer
	accounts     store.AccountStore
	transactions *TransactionService
	logger       *log.Logger
}

func NewReceiptService(analyzer ai.ReceiptAnalyzer, accounts store.AccountStore, transactions *TransactionService, logger *log.Logger) *ReceiptService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReceiptService{
		analyzer:     analyzer,
		accounts:     accounts,
		transactions: transactions,
		logger:       logger.WithComponent(log.ComponentReceipt),
	}
}

// Analyze reads the receipt image (a data URL or bare base64) and books the
// purchase on the user's checking account, or their first account.
func (s *ReceiptService) Analyze(ctx context.Context, userID, image string) (ReceiptResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ReceiptResult{}, invalid("userId is required")
	}
	data, mimeType, err := decodeImage(image)
	if err != nil {
		return ReceiptResult{}, err
	}

	analysis, err := s.analyzer.AnalyzeReceipt(ctx, data, mimeType)
	if err != nil {
		return ReceiptResult{}, fmt.Errorf("analyze receipt: %w", err)
	}

	accounts, err := s.accounts.ListAccountsByUser(ctx, userID)
	if err != nil {
		return ReceiptResult{}, fmt.Errorf("list accounts: %w", err)
	}
	acc, ok := defaultAccount(accounts)
	if !ok {
		s.logger.InfoContext(ctx, "No account to book receipt on", log.FieldUserID, userID)
		return ReceiptResult{Analysis: analysis}, nil
	}

	date, err := time.Parse(time.DateOnly, analysis.Date)
	if err != nil {
		date = s.transactions.now()
	}
	tx, err := s.transactions.record(ctx, core.Transaction{
		AccountID:     acc.ID,
		Amount:        core.MoneyFromFloat(analysis.Amount).Abs().Neg(),
		Description:   analysis.Merchant + " - Receipt Upload",
		Merchant:      analysis.Merchant,
		Category:      analysis.Category,
		Subcategory:   analysis.Subcategory,
		Date:          date,
		AICategorized: true,
		Metadata:      map[string]any{"receiptAnalysis": analysis},
	})
	if err != nil {
		return ReceiptResult{}, err
	}
	return ReceiptResult{Analysis: analysis, Transaction: &tx}, nil
}

func defaultAccount(accounts []core.Account) (core.Account, bool) {
	for _, a := range accounts {
		if a.Type == "checking" {
			return a, true
		}
	}
	if len(accounts) > 0 {
		return accounts[0], true
	}
	return core.Account{}, false
}

// decodeImage accepts "data:<mime>;base64,<data>" or bare base64.
func decodeImage(image string) ([]byte, string, error) {
	image = strings.TrimSpace(image)
	mimeType := ""
	if rest, ok := strings.CutPrefix(image, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", invalid("image data URL must be base64 encoded")
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		image = payload
	}

	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(image)
	}
	if err != nil || len(data) == 0 {
		return nil, "", invalid("image is not valid base64")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
