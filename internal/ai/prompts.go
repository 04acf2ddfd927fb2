package ai

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"finboard/internal/core"
)

func categorizePrompt(description, merchant string, amount core.Money) string {
	var b strings.Builder
	b.WriteString("Analyze this transaction and categorize it:\n")
	fmt.Fprintf(&b, "Description: %q\n", description)
	if merchant != "" {
		fmt.Fprintf(&b, "Merchant: %q\n", merchant)
	}
	fmt.Fprintf(&b, "Amount: $%s\n\n", amount)
	b.WriteString("Categorize this expense and determine if it's income or an expense.\n")
	b.WriteString("Respond with JSON containing category, subcategory, confidence (0 to 1) and isIncome.\n\n")
	fmt.Fprintf(&b, "Use these main categories: %s\n\n", strings.Join(Categories, ", "))
	b.WriteString(`For subcategories, be specific but concise (e.g. "Groceries", "Gas", "Salary", "Freelance").`)
	return b.String()
}

const receiptPrompt = `Analyze this receipt image and extract the transaction information.

Respond with JSON containing merchant, amount (total paid, positive number), date (YYYY-MM-DD),
category, subcategory, description (brief description of the purchase) and items
(name, price, quantity for every visible line item).

Categories should match: Food & Dining, Shopping, Transportation, Bills & Utilities, Entertainment,
Health & Fitness, Travel, Education, Business, Other`

func insightsPrompt(req InsightRequest) string {
	var b strings.Builder
	b.WriteString("Analyze this financial data and provide 3-5 actionable spending insights")
	if name := req.User.FullName(); name != "" {
		fmt.Fprintf(&b, " for %s", name)
	}
	b.WriteString(":\n\nTRANSACTIONS (Last 30 days):\n")
	for _, t := range req.Transactions {
		fmt.Fprintf(&b, "- %s: $%s (%s) on %s\n", t.Description, t.Amount, t.Category, t.Date.Format(time.DateOnly))
	}
	b.WriteString("\nBUDGETS:\n")
	for _, bud := range req.Budgets {
		period := "month"
		if bud.Period == core.Yearly {
			period = "year"
		}
		fmt.Fprintf(&b, "- %s: $%s/%s\n", bud.Category, bud.Amount, period)
	}
	b.WriteString(`
Provide insights about spending patterns, budget adherence, potential savings, and financial recommendations.

Types: "warning" (budget alerts, overspending), "tip" (savings advice, recommendations), "trend" (spending patterns)
Priorities: "high" (urgent action needed), "medium" (should consider), "low" (nice to know)`)
	return b.String()
}

func str() *genai.Schema  { return &genai.Schema{Type: genai.TypeString} }
func num() *genai.Schema  { return &genai.Schema{Type: genai.TypeNumber} }
func flag() *genai.Schema { return &genai.Schema{Type: genai.TypeBoolean} }

var categorizeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category":    str(),
		"subcategory": str(),
		"confidence":  num(),
		"isIncome":    flag(),
	},
	Required: []string{"category", "confidence", "isIncome"},
}

var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"merchant":    str(),
		"amount":      num(),
		"date":        str(),
		"category":    str(),
		"subcategory": str(),
		"description": str(),
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":     str(),
					"price":    num(),
					"quantity": num(),
				},
				Required: []string{"name", "price"},
			},
		},
	},
	Required: []string{"merchant", "amount", "date", "category", "description"},
}

var insightsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":        {Type: genai.TypeString, Enum: []string{"warning", "tip", "trend"}},
			"title":       str(),
			"description": str(),
			"category":    str(),
			"amount":      num(),
			"priority":    {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
		},
		Required: []string{"type", "title", "description", "priority"},
	},
}
