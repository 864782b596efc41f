package responder

import (
	"time"

	"firestige.xyz/losenet/internal/core"
)

// Limiter caps replies per source address within a fixed window. Counts are
// dropped wholesale when the window rotates. It is owned by one Responder
// and is not safe for concurrent use.
type Limiter struct {
	current      map[core.IPv4]int64 // source IP → replies in current window
	windowStart  time.Time
	windowSize   time.Duration
	maxPerWindow int64

	rejected int64
}

// LimiterConfig configures per-source reply limiting.
type LimiterConfig struct {
	MaxPerIP int           // Max replies per source IP per window (0 = disabled)
	Window   time.Duration // Window size (default 10s)
}

// NewLimiter creates a limiter. Returns nil if disabled (MaxPerIP <= 0).
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.MaxPerIP <= 0 {
		return nil
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	return &Limiter{
		current:      make(map[core.IPv4]int64),
		windowStart:  time.Now(),
		windowSize:   cfg.Window,
		maxPerWindow: int64(cfg.MaxPerIP),
	}
}

// Allow records one reply to src and reports whether it is within the limit.
// A nil Limiter allows everything.
func (l *Limiter) Allow(src core.IPv4, now time.Time) bool {
	if l == nil {
		return true
	}
	if now.Sub(l.windowStart) >= l.windowSize {
		l.current = make(map[core.IPv4]int64)
		l.windowStart = now
	}

	l.current[src]++
	if l.current[src] > l.maxPerWindow {
		l.rejected++
		return false
	}
	return true
}

// Rejected returns the total number of suppressed replies.
func (l *Limiter) Rejected() int64 {
	if l == nil {
		return 0
	}
	return l.rejected
}

// ActiveSources returns the number of distinct source IPs in the current window.
func (l *Limiter) ActiveSources() int {
	if l == nil {
		return 0
	}
	return len(l.current)
}
