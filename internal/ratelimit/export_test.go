// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ratelimit

import "time"

// SetClock replaces the limiter's time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

var RetryAfterSeconds = retryAfterSeconds
