// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	sweepInterval = time.Minute
	idleTTL       = 10 * time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// MemoryLimiter is a per key token bucket refilling requests tokens every
// window. State is local to the process.
type MemoryLimiter struct {
	requests int
	every    rate.Limit

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time

	now func() time.Time
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if m.requests <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(m.every, m.requests)}
		m.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}

	return Decision{Allowed: true, Remaining: int(b.lim.TokensAt(now))}, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now

	for k, b := range m.buckets {
		if now.Sub(b.seen) > idleTTL {
			delete(m.buckets, k)
		}
	}
}

type MemoryOption func(*MemoryLimiter)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) {
		m.now = now
	}
}

func NewMemoryLimiter(requests int, window time.Duration, opts ...MemoryOption) *MemoryLimiter {
	m := new(MemoryLimiter)

	m.requests = requests
	if requests > 0 && window > 0 {
		m.every = rate.Every(window / time.Duration(requests))
	} else {
		m.every = rate.Inf
	}
	m.buckets = make(map[string]*bucket)
	m.now = time.Now

	for _, opt := range opts {
		opt(m)
	}

	m.lastSweep = m.now()

	return m
}
