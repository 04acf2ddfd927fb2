package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"finboard/internal/core"
	"finboard/internal/log"
)

const (
	DefaultModel   = "gemini-2.5-pro"
	DefaultTimeout = 30 * time.Second
)

// generator is the slice of *genai.Models that Gemini uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

var _ Advisor = (*Gemini)(nil)

// Gemini answers every advisory call with one JSON-mode request.
type Gemini struct {
	models  generator
	model   string
	timeout time.Duration
	logger  *log.Logger
}

// NewGemini builds a client for the Gemini API. An empty key yields ErrNotConfigured.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *log.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, cfg, logger), nil
}

func newGemini(models generator, cfg GeminiConfig, logger *log.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Gemini{
		models:  models,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.WithComponent(log.ComponentAI),
	}
}

// generateJSON runs one request and decodes the JSON answer into out.
func (g *Gemini) generateJSON(ctx context.Context, parts []*genai.Part, schema *genai.Schema, out any) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return errors.New("empty response from model")
	}
	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return errors.New("empty response from model")
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), out); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

func (g *Gemini) TryCategorize(ctx context.Context, description, merchant string, amount core.Money) (Categorization, error) {
	var c Categorization
	parts := []*genai.Part{{Text: categorizePrompt(description, merchant, amount)}}
	if err := g.generateJSON(ctx, parts, categorizeSchema, &c); err != nil {
		return Categorization{}, err
	}
	return c.normalize(), nil
}

func (g *Gemini) Categorize(ctx context.Context, description, merchant string, amount core.Money) Categorization {
	c, err := g.TryCategorize(ctx, description, merchant, amount)
	if err != nil {
		g.logger.WarnContext(ctx, "Categorization failed, using fallback",
			log.FieldOperation, log.OpCategorize,
			log.FieldDescription, description,
			log.FieldError, err)
		return Fallback(amount)
	}
	g.logger.DebugContext(ctx, "Transaction categorized",
		log.FieldCategory, c.Category,
		log.FieldConfidence, c.Confidence)
	return c
}

func (g *Gemini) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (ReceiptAnalysis, error) {
	if len(image) == 0 {
		return ReceiptAnalysis{}, errors.New("empty receipt image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		{Text: receiptPrompt},
	}

	var r ReceiptAnalysis
	if err := g.generateJSON(ctx, parts, receiptSchema, &r); err != nil {
		return ReceiptAnalysis{}, fmt.Errorf("analyze receipt: %w", err)
	}
	if r.Category == "" {
		r.Category = core.CategoryOther
	}
	if err := r.validate(); err != nil {
		return ReceiptAnalysis{}, fmt.Errorf("analyze receipt: %w", err)
	}
	return r, nil
}

func (g *Gemini) GenerateInsights(ctx context.Context, req InsightRequest) []InsightSuggestion {
	var raw []InsightSuggestion
	parts := []*genai.Part{{Text: insightsPrompt(req)}}
	if err := g.generateJSON(ctx, parts, insightsSchema, &raw); err != nil {
		g.logger.WarnContext(ctx, "Insight generation failed",
			log.FieldOperation, log.OpGenerate,
			log.FieldUserID, req.User.ID,
			log.FieldError, err)
		return []InsightSuggestion{}
	}
	return keepValidInsights(raw)
}

// cleanModelJSON strips Markdown fences and any chatter around the JSON value.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return s
}
