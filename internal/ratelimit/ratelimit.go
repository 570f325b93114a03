// Package ratelimit throttles user-initiated AI calls per endpoint. It is a
// client-side assist in front of an authoritative remote check and fails
// open when that check is unreachable.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/rpc"
)

// Request is the remote check payload.
type Request struct {
	UserID        string `json:"userId"`
	Endpoint      string `json:"endpoint"`
	MaxRequests   int    `json:"maxRequests"`
	WindowMinutes int    `json:"windowMinutes"`
}

// Checker is the authoritative rate-limit check.
type Checker interface {
	Check(ctx context.Context, req Request) (bool, error)
}

// FunctionChecker calls the hosted check-rate-limit function.
type FunctionChecker struct {
	Client   *rpc.Client
	Function string
}

// Check implements Checker.
func (f FunctionChecker) Check(ctx context.Context, req Request) (bool, error) {
	name := f.Function
	if name == "" {
		name = "check-rate-limit"
	}
	var allowed bool
	if err := f.Client.Call(ctx, name, req, &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

type window struct {
	count   int
	expires time.Time
}

// Limiter keeps one local window per user and endpoint.
type Limiter struct {
	checker Checker
	logger  logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a Limiter. A nil checker allows every request that opens a
// window.
func New(checker Checker, logger logging.Logger) *Limiter {
	return &Limiter{
		checker: checker,
		logger:  logging.OrDefault(logger),
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow reports whether userID may call endpoint now. Inside an open window
// the count is kept locally; otherwise the remote check decides and a new
// window starts. A failed remote check allows the request without opening
// a window.
func (l *Limiter) Allow(ctx context.Context, userID, endpoint string, maxRequests, windowMinutes int) bool {
	key := userID + ":" + endpoint
	now := l.now()

	l.mu.Lock()
	if w, ok := l.windows[key]; ok && now.Before(w.expires) {
		w.count++
		allowed := w.count <= maxRequests
		l.mu.Unlock()
		if !allowed {
			l.logger.Debug("Rate limited locally",
				logging.F(logging.FieldUserID, userID),
				logging.F(logging.FieldEndpoint, endpoint))
		}
		return allowed
	}
	l.mu.Unlock()

	allowed := true
	if l.checker != nil {
		var err error
		allowed, err = l.checker.Check(ctx, Request{
			UserID:        userID,
			Endpoint:      endpoint,
			MaxRequests:   maxRequests,
			WindowMinutes: windowMinutes,
		})
		if err != nil {
			l.logger.WithError(err).Warn("Rate limit check failed, allowing request",
				logging.F(logging.FieldUserID, userID),
				logging.F(logging.FieldEndpoint, endpoint))
			return true
		}
	}

	count := 1
	if !allowed {
		// keep denying locally until the window ends
		count = maxRequests + 1
	}
	l.mu.Lock()
	l.windows[key] = &window{count: count, expires: now.Add(time.Duration(windowMinutes) * time.Minute)}
	l.mu.Unlock()
	return allowed
}

// Reset forgets every local window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}
