package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig bounds per-client traffic. Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// Enabled reports whether any limit is set.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerMinute > 0 || c.RequestsPerHour > 0 || c.MaxRequestsPerDay > 0 || c.MaxDataPerDay > 0
}

// RateLimiter tracks request rates and daily quotas per client.
type RateLimiter struct {
	mu      sync.Mutex
	limits  RateLimitConfig
	clients map[string]*clientUsage
	now     func() time.Time
}

// Usage is a snapshot of one client's counters.
type Usage struct {
	RequestsLastMinute int
	RequestsLastHour   int
	RequestsToday      int
	DataToday          int64
	LastRequest        time.Time
}

type clientUsage struct {
	Usage
	minuteStart time.Time
	hourStart   time.Time
	day         time.Time
}

// NewRateLimiter creates a rate limiter with the given limits.
func NewRateLimiter(limits RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		clients: make(map[string]*clientUsage),
		now:     time.Now,
	}
}

// CheckRateLimit admits a request of dataSize bytes from clientID or
// returns a *RateLimitError or *QuotaExceededError.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.usage(clientID, now)
	u.roll(now)

	l := rl.limits
	switch {
	case l.RequestsPerMinute > 0 && u.RequestsLastMinute >= l.RequestsPerMinute:
		return &RateLimitError{Type: "minute", Limit: l.RequestsPerMinute, RetryAfter: u.minuteStart.Add(time.Minute).Sub(now)}
	case l.RequestsPerHour > 0 && u.RequestsLastHour >= l.RequestsPerHour:
		return &RateLimitError{Type: "hour", Limit: l.RequestsPerHour, RetryAfter: u.hourStart.Add(time.Hour).Sub(now)}
	case l.MaxRequestsPerDay > 0 && u.RequestsToday >= l.MaxRequestsPerDay:
		return &QuotaExceededError{Type: "requests", Limit: int64(l.MaxRequestsPerDay), Used: int64(u.RequestsToday), Resets: nextDay(now)}
	case l.MaxDataPerDay > 0 && u.DataToday+dataSize > l.MaxDataPerDay:
		return &QuotaExceededError{Type: "data", Limit: l.MaxDataPerDay, Used: u.DataToday, Resets: nextDay(now)}
	}

	u.RequestsLastMinute++
	u.RequestsLastHour++
	u.RequestsToday++
	u.DataToday += dataSize
	u.LastRequest = now
	return nil
}

// GetUsage returns a copy of the counters for clientID.
func (rl *RateLimiter) GetUsage(clientID string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if u, ok := rl.clients[clientID]; ok {
		return u.Usage
	}
	return Usage{}
}

// Prune forgets clients idle for longer than maxIdle and returns how many
// were removed.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	n := 0
	for id, u := range rl.clients {
		if now.Sub(u.LastRequest) > maxIdle {
			delete(rl.clients, id)
			n++
		}
	}
	return n
}

func (rl *RateLimiter) usage(clientID string, now time.Time) *clientUsage {
	u, ok := rl.clients[clientID]
	if !ok {
		u = &clientUsage{minuteStart: now, hourStart: now, day: startOfDay(now)}
		u.LastRequest = now
		rl.clients[clientID] = u
	}
	return u
}

// roll resets the windows that have elapsed.
func (u *clientUsage) roll(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.RequestsLastMinute = 0
		u.minuteStart = now
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.RequestsLastHour = 0
		u.hourStart = now
	}
	if today := startOfDay(now); !today.Equal(u.day) {
		u.RequestsToday = 0
		u.DataToday = 0
		u.day = today
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func nextDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1)
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a daily quota violation.
type QuotaExceededError struct {
	Type   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
