package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/parsererror"
	"fjacquet/fintrack/internal/rpc"
)

// Retry defaults.
const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
)

// IsRetryable reports whether a chat failure is transient or rate limiting.
func IsRetryable(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return rpc.IsTransient(err)
}

// RetryingClient retries transient failures of next with exponential
// backoff: attempt n waits InitialBackoff * 2^(n-1) before attempt n+1.
type RetryingClient struct {
	next           Client
	maxRetries     int
	initialBackoff time.Duration
	logger         logging.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewRetryingClient wraps next. maxRetries counts the retries after the
// first call, so at most maxRetries+1 calls are made.
func NewRetryingClient(next Client, maxRetries int, initialBackoff time.Duration, logger logging.Logger) *RetryingClient {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if initialBackoff <= 0 {
		initialBackoff = DefaultInitialBackoff
	}
	return &RetryingClient{
		next:           next,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		logger:         logging.OrDefault(logger),
		sleep:          sleepContext,
	}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (r *RetryingClient) Backoff(attempt int) time.Duration {
	return r.initialBackoff << (attempt - 1)
}

// Chat implements Client. The final failure is a RemoteCallError.
func (r *RetryingClient) Chat(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	attempts := r.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := r.next.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == attempts {
			break
		}

		delay := r.Backoff(attempt)
		r.logger.WithError(err).Warn("AI call failed, retrying",
			logging.F(logging.FieldAttempt, attempt),
			logging.F("delay_ms", delay.Milliseconds()))
		if err := r.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return Response{}, parsererror.Remote("ai.chat", fmt.Errorf("AI call failed: %w", lastErr))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
