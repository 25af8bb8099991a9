package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces document starts. A nil *Limiter never waits.
type Limiter struct {
	rl  *rate.Limiter
	rpm int
}

// NewLimiter returns nil when rpm is 0 (unlimited).
func NewLimiter(rpm, burst int) *Limiter {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		rl:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		rpm: rpm,
	}
}

func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.rl.Wait(ctx)
}

// RPM returns the configured rate, 0 when unlimited.
func (l *Limiter) RPM() int {
	if l == nil {
		return 0
	}
	return l.rpm
}

// ProgressTracker tracks batch processing progress
type ProgressTracker struct {
	Total     int
	Completed int
	StartTime time.Time
	mu        sync.RWMutex
}

// Increment records one finished item and returns the new count.
func (p *ProgressTracker) Increment() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Completed++
	return p.Completed
}

func (p *ProgressTracker) Percent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

func (p *ProgressTracker) Elapsed() time.Duration {
	return time.Since(p.StartTime)
}

func (p *ProgressTracker) ETA() time.Duration {
	p.mu.RLock()
	completed := p.Completed
	total := p.Total
	p.mu.RUnlock()

	if completed == 0 {
		return 0
	}

	elapsed := p.Elapsed()
	rate := float64(completed) / elapsed.Seconds()
	remaining := float64(total-completed) / rate

	return time.Duration(remaining * float64(time.Second))
}
