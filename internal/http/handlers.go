package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
)

type healthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Uptime    string                    `json:"uptime"`
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	})
}

// handleReady pings the store and reports 503 when it does not answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, httpStatus := "ready", http.StatusOK
	checks := map[string]string{"store": "not_configured"}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		switch err := s.ready.Ping(ctx); {
		case err == nil:
			checks["store"] = "ok"
		case errors.Is(err, context.DeadlineExceeded):
			checks["store"] = "timeout"
		default:
			checks["store"] = "failed: " + err.Error()
		}
		if checks["store"] != "ok" {
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "store", checks["store"])
		}
	}

	writeJSON(w, httpStatus, map[string]any{"status": status, "checks": checks})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	d, err := s.svc.Analysis.Dashboard(ctx, r.PathValue("userId"))
	if err != nil {
		fail(w, r, err, "Failed to fetch dashboard data")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		fail(w, r, err, "Invalid transaction filter")
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	txs, err := s.svc.Transactions.List(ctx, r.PathValue("userId"), filter)
	if err != nil {
		fail(w, r, err, "Failed to fetch transactions")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload TransactionPayload
	if err := decodeJSON(w, r, maxJSONBody, &payload); err != nil {
		fail(w, r, err, "Failed to create transaction")
		return
	}
	in, err := payload.Input()
	if err != nil {
		fail(w, r, err, "Failed to create transaction")
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()
	tx, err := s.svc.Transactions.Create(ctx, in)
	if err != nil {
		fail(w, r, err, "Failed to create transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleRecategorize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	tx, err := s.svc.Transactions.Recategorize(ctx, r.PathValue("id"))
	if err != nil {
		fail(w, r, err, "Failed to categorize transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	var payload ReceiptPayload
	if err := decodeJSON(w, r, maxReceiptBody, &payload); err != nil {
		if isMissingField(err) {
			writeMessage(w, http.StatusBadRequest, "Image and userId are required")
			return
		}
		fail(w, r, err, "Failed to analyze receipt")
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()
	result, err := s.svc.Receipts.Analyze(ctx, strings.TrimSpace(payload.UserID), payload.Image)
	if err != nil {
		fail(w, r, err, "Failed to analyze receipt")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBudgetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	analysis, err := s.svc.Analysis.Budgets(ctx, r.PathValue("userId"))
	if err != nil {
		fail(w, r, err, "Failed to analyze budgets")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var payload BudgetPayload
	if err := decodeJSON(w, r, maxJSONBody, &payload); err != nil {
		fail(w, r, err, "Failed to create budget")
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()
	b, err := s.svc.Budgets.Create(ctx, payload.Budget())
	if err != nil {
		fail(w, r, err, "Failed to create budget")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	if err := s.svc.Budgets.Deactivate(ctx, r.PathValue("id")); err != nil {
		fail(w, r, err, "Failed to delete budget")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	insights, err := s.svc.Insights.Generate(ctx, r.PathValue("userId"))
	if err != nil {
		fail(w, r, err, "Failed to generate insights")
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	insights, err := s.svc.Insights.List(ctx, r.PathValue("userId"))
	if err != nil {
		fail(w, r, err, "Failed to fetch insights")
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (s *Server) handleMarkInsightRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	insight, err := s.svc.Insights.MarkRead(ctx, r.PathValue("id"))
	if err != nil {
		fail(w, r, err, "Failed to update insight")
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		fail(w, r, err, "Failed to fetch spending trends")
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	trends, err := s.svc.Analysis.Trends(ctx, r.PathValue("userId"), days)
	if err != nil {
		fail(w, r, err, "Failed to fetch spending trends")
		return
	}
	writeJSON(w, http.StatusOK, trends.View())
}
