package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/arhen/satset.io/internal/metrics"
)

// Op names the operation being limited; each operation gets its own buckets.
type Op string

const (
	OpCreate   Op = "create"
	OpRedirect Op = "redirect"
)

// CounterStore is the ephemeral backing for fixed-window counters.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, ttl time.Duration) error
}

// Result of an admission check. RetryAfter is only meaningful when Allowed is
// false.
type Result struct {
	Allowed    bool
	RetryAfter int
}

// Limiter is a fixed-window rate limiter with a minute and a day bucket per
// identity+operation. Windows are clock-aligned, so up to 2x the nominal rate
// can pass across a boundary; that is acceptable for abuse deterrence, which
// is the only goal here.
type Limiter struct {
	store     CounterStore
	perMinute int64
	perDay    int64
	now       func() time.Time
}

func New(store CounterStore, perMinute, perDay int64) *Limiter {
	return &Limiter{
		store:     store,
		perMinute: perMinute,
		perDay:    perDay,
		now:       time.Now,
	}
}

func (l *Limiter) keys(identity string, op Op) (minuteKey, dayKey string) {
	now := l.now().UTC()
	minuteKey = fmt.Sprintf("rate:%s:%s:min:%s", identity, op, now.Format("2006-01-02-15-04"))
	dayKey = fmt.Sprintf("rate:%s:%s:day:%s", identity, op, now.Format("2006-01-02"))
	return minuteKey, dayKey
}

// Check compares the current bucket counts against the limits without
// spending anything. A denied minute bucket answers retry-after 60; a denied
// day bucket answers the seconds remaining until the next UTC midnight.
func (l *Limiter) Check(ctx context.Context, identity string, op Op) (Result, error) {
	minuteKey, dayKey := l.keys(identity, op)

	minuteCount, err := l.store.Get(ctx, minuteKey)
	if err != nil {
		return Result{}, err
	}
	if minuteCount >= l.perMinute {
		metrics.RateLimitDenied.WithLabelValues(string(op)).Inc()
		return Result{Allowed: false, RetryAfter: 60}, nil
	}

	dayCount, err := l.store.Get(ctx, dayKey)
	if err != nil {
		return Result{}, err
	}
	if dayCount >= l.perDay {
		metrics.RateLimitDenied.WithLabelValues(string(op)).Inc()
		return Result{Allowed: false, RetryAfter: l.secondsToMidnight()}, nil
	}

	return Result{Allowed: true}, nil
}

// Record spends one unit in both buckets. It is called only after an allowed
// operation has completed its validation.
func (l *Limiter) Record(ctx context.Context, identity string, op Op) error {
	minuteKey, dayKey := l.keys(identity, op)

	if err := l.store.Increment(ctx, minuteKey, time.Minute); err != nil {
		return err
	}

	return l.store.Increment(ctx, dayKey, 24*time.Hour)
}

func (l *Limiter) secondsToMidnight() int {
	now := l.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		Add(24 * time.Hour)
	return int(midnight.Sub(now).Seconds() + 0.5)
}
