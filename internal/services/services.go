// Package services implements the finance operations exposed over HTTP.
// Each service works against the store ports and the ai interfaces, so the
// same code runs on the memory and SQLite backends.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finboard/internal/amqp"
)

// ErrInvalidInput marks errors caused by the caller's data.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// EventPublisher is implemented by amqp.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev amqp.TransactionEvent) error
}

// ParseDateBound parses an RFC 3339 timestamp or a YYYY-MM-DD date. Date-only
// values are taken as UTC; when end is true they cover the whole day.
func ParseDateBound(s string, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, invalid("date %q must be YYYY-MM-DD or RFC 3339", s)
	}
	if end {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d, nil
}
