package validation

// RateLimiter caps how many datagrams each source port may have admitted per
// tick. Counts are reset by the caller at every tick boundary, so the result
// depends only on the order datagrams arrive in, never on wall-clock time.
// It is not safe for concurrent use; the tick goroutine owns it.
type RateLimiter struct {
	maxPerTick int
	counts     map[uint16]int
}

// NewRateLimiter creates a limiter admitting maxPerTick datagrams per port per
// tick. Zero disables limiting.
func NewRateLimiter(maxPerTick int) *RateLimiter {
	return &RateLimiter{
		maxPerTick: maxPerTick,
		counts:     make(map[uint16]int),
	}
}

// Allow records one datagram from port and reports whether it is admitted.
func (rl *RateLimiter) Allow(port uint16) bool {
	if rl.maxPerTick <= 0 {
		return true
	}
	if rl.counts[port] >= rl.maxPerTick {
		return false
	}
	rl.counts[port]++
	return true
}

// Reset starts a new tick.
func (rl *RateLimiter) Reset() {
	clear(rl.counts)
}
