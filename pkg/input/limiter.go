package input

import (
	"sync"
	"time"
)

// Limiter lets through at most ceiling events per one-second window.
type Limiter struct {
	mu      sync.Mutex
	ceiling int
	start   time.Time
	count   int
	now     func() time.Time
}

func NewLimiter(ceiling int, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{ceiling: ceiling, now: now}
}

// Allow counts the event and tells whether it fits into the current window.
// Zero or negative ceiling disables the limit.
func (l *Limiter) Allow() bool {
	if l.ceiling <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.start) >= time.Second || now.Before(l.start) {
		l.start, l.count = now, 0
	}
	if l.count >= l.ceiling {
		return false
	}
	l.count++
	return true
}
