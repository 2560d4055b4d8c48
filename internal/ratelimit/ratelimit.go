// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ratelimit implements a process-local fixed-window request counter.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Default limits.
const (
	DefaultWindow = 60 * time.Second
	DefaultMax    = 10
)

// Result is the outcome of a Check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key within fixed windows.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
	limit   int
	now     func() time.Time
}

// New creates a Limiter allowing limit requests per key and window.
// Non-positive arguments fall back to the defaults.
func New(window time.Duration, limit int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultMax
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		window:  window,
		limit:   limit,
		now:     time.Now,
	}
}

// Check records a request for key and reports whether it is allowed.
// Denied requests do not extend the window.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return Result{Allowed: true}
	}

	if b.count >= l.limit {
		return Result{RetryAfter: b.resetAt.Sub(now)}
	}

	b.count++
	return Result{Allowed: true}
}

// Sweep drops buckets whose window has ended.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Middleware limits requests per client IP for the named action.
func Middleware(l *Limiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := l.Check(action + ":" + c.RealIP())
			if res.Allowed {
				return next(c)
			}

			slog.Warn("rate_limited",
				"action", action,
				"ip", c.RealIP(),
				"retry_after", res.RetryAfter,
			)
			c.Response().Header().Set("Retry-After", retryAfterSeconds(res.RetryAfter))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
		}
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
