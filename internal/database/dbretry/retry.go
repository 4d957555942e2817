// Package dbretry wraps database operations with exponential backoff for
// transient failures. Constraint violations and other logic errors are never
// retried.
package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	maxElapsedTime  = 30 * time.Second
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
	maxRetries      = uint64(5)
)

// IsRetryableError reports whether the given error is worth retrying.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL error classes: 08 connection exceptions, 40 serialization
	// failures and deadlocks, 53 insufficient resources, 57 operator
	// intervention (shutdown, cannot connect now)
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		if len(code) >= 2 {
			switch code[:2] {
			case "08", "40", "53", "57":
				return true
			}
		}

		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Network errors surface as plain strings from the driver
	msg := err.Error()

	return strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "EOF")
}

func newPolicy(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries), ctx)
}

// Operation runs a database operation with retry logic and returns its result.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var result T

	err := backoff.Retry(func() error {
		var opErr error

		result, opErr = operation(ctx)
		if opErr != nil && !IsRetryableError(opErr) {
			return backoff.Permanent(opErr)
		}

		return opErr
	}, newPolicy(ctx))
	if err != nil {
		return result, fmt.Errorf("database operation failed: %w", err)
	}

	return result, nil
}

// NoResult runs a database operation that produces no result with retry logic.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	err := backoff.Retry(func() error {
		opErr := operation(ctx)
		if opErr != nil && !IsRetryableError(opErr) {
			return backoff.Permanent(opErr)
		}

		return opErr
	}, newPolicy(ctx))
	if err != nil {
		return fmt.Errorf("database operation failed: %w", err)
	}

	return nil
}
