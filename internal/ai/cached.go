package ai

import (
	"context"
	"strconv"
	"strings"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/log"
)

var _ Categorizer = (*CachedCategorizer)(nil)

// CachedCategorizer remembers successful categorizations so repeated
// merchants do not cost another model call. Fallbacks are never cached.
type CachedCategorizer struct {
	next   FallibleCategorizer
	cache  cache.Cache[Categorization]
	logger *log.Logger
}

func NewCachedCategorizer(next FallibleCategorizer, c cache.Cache[Categorization], logger *log.Logger) *CachedCategorizer {
	if logger == nil {
		logger = log.Discard()
	}
	return &CachedCategorizer{next: next, cache: c, logger: logger.WithComponent(log.ComponentCache)}
}

func categorizationKey(description, merchant string, amount core.Money) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(description) + "|" + norm(merchant) + "|" + strconv.FormatInt(amount.Cents, 10)
}

func (c *CachedCategorizer) Categorize(ctx context.Context, description, merchant string, amount core.Money) Categorization {
	key := categorizationKey(description, merchant, amount)
	if hit, ok := c.cache.Get(key); ok {
		c.logger.DebugContext(ctx, "Categorization cache hit", log.FieldCategory, hit.Category)
		return hit
	}

	got, err := c.next.TryCategorize(ctx, description, merchant, amount)
	if err != nil {
		c.logger.WarnContext(ctx, "Categorization failed, using fallback",
			log.FieldOperation, log.OpCategorize,
			log.FieldDescription, description,
			log.FieldError, err)
		return Fallback(amount)
	}
	c.cache.Set(key, got)
	return got
}
