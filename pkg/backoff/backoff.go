// Package backoff provides a small exponential backoff helper used where a
// failing loop should slow down instead of spinning.
package backoff

import "time"

// Backoff produces exponentially growing delays capped at a maximum. It has
// no external dependencies and is not safe for concurrent use.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

// New creates a backoff helper with the given base and maximum delays.
func New(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{base: base, max: max}
}

// Next returns the delay for the current attempt and advances the sequence;
// each call doubles the delay until the cap is reached.
func (b *Backoff) Next() time.Duration {
	delay := b.base << uint(b.attempt)
	if delay > b.max {
		return b.max
	}
	b.attempt++
	return delay
}

// Reset restarts the sequence from the base delay. Call it after the
// operation succeeds.
func (b *Backoff) Reset() {
	b.attempt = 0
}
