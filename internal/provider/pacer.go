package provider

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive page requests to one source.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer waits a fixed interval on every call.
type IntervalPacer struct {
	Interval time.Duration
	Sleep    SleepFunc
}

func NewIntervalPacer(interval time.Duration) IntervalPacer {
	return IntervalPacer{Interval: interval, Sleep: SleepContext}
}

func (p IntervalPacer) Wait(ctx context.Context) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, p.Interval)
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }

// RatePacer spaces calls with a token bucket of size one. The initial
// token is spent at construction, so the first Wait already blocks for
// one interval measured from when the pacer was built.
type RatePacer struct {
	limiter *rate.Limiter
}

func NewRatePacer(interval time.Duration) *RatePacer {
	p := NewSharedRatePacer(interval)
	p.limiter.Allow()
	return p
}

// NewSharedRatePacer keeps the initial token, so the first Wait returns at
// once. Runs sharing it wait before every page, including their first.
func NewSharedRatePacer(interval time.Duration) *RatePacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
