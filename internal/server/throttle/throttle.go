// Package throttle limits request rates per caller key (client IP for
// anonymous endpoints, user id for authenticated ones).
package throttle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrInvalidRate = errors.New("invalid rate")

var periods = map[string]time.Duration{
	"s":      time.Second,
	"sec":    time.Second,
	"second": time.Second,
	"m":      time.Minute,
	"min":    time.Minute,
	"minute": time.Minute,
	"h":      time.Hour,
	"hour":   time.Hour,
	"d":      24 * time.Hour,
	"day":    24 * time.Hour,
}

// Rate is a request quota: Requests per Period.
type Rate struct {
	Requests int
	Period   time.Duration
}

// ParseRate parses quotas written as "<n>/<period>", e.g. "50/hour" or
// "1000/day".
func ParseRate(s string) (Rate, error) {
	num, period, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n <= 0 {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	d, ok := periods[strings.ToLower(strings.TrimSpace(period))]
	if !ok {
		return Rate{}, fmt.Errorf("%w: unknown period in %q", ErrInvalidRate, s)
	}
	return Rate{Requests: n, Period: d}, nil
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Requests, r.Period)
}

// RateLimitedError is returned once a key has used up its quota.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("request was throttled, expected available in %d seconds", e.Seconds())
}

// Seconds is RetryAfter rounded up to whole seconds, at least 1.
func (e *RateLimitedError) Seconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps a token bucket per key. Buckets idle for longer than the
// quota period are full again and get dropped on the next sweep.
type Limiter struct {
	rate Rate
	now  func() time.Time

	mu        sync.Mutex
	keys      map[string]*entry
	lastSweep time.Time
}

func NewLimiter(r Rate) *Limiter {
	return &Limiter{
		rate: r,
		now:  time.Now,
		keys: make(map[string]*entry),
	}
}

// Allow takes one request from key's quota, or returns *RateLimitedError
// without consuming anything. A nil Limiter allows everything.
func (l *Limiter) Allow(key string) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	l.sweep(t)

	e, ok := l.keys[key]
	if !ok {
		every := l.rate.Period / time.Duration(l.rate.Requests)
		e = &entry{limiter: rate.NewLimiter(rate.Every(every), l.rate.Requests)}
		l.keys[key] = e
	}
	e.lastSeen = t

	res := e.limiter.ReserveN(t, 1)
	if !res.OK() {
		return &RateLimitedError{RetryAfter: l.rate.Period}
	}
	if delay := res.DelayFrom(t); delay > 0 {
		res.CancelAt(t)
		return &RateLimitedError{RetryAfter: delay}
	}
	return nil
}

func (l *Limiter) sweep(t time.Time) {
	if t.Sub(l.lastSweep) < l.rate.Period {
		return
	}
	for k, e := range l.keys {
		if t.Sub(e.lastSeen) >= l.rate.Period {
			delete(l.keys, k)
		}
	}
	l.lastSweep = t
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
