package client

import "time"

// backoff doubles a reconnect delay up to a ceiling
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	return &backoff{initial: initial, max: max, current: initial}
}

// Next returns the delay to wait now and grows the following one
func (b *backoff) Next() time.Duration {
	d := b.current
	b.current = min(b.current*2, b.max)
	return d
}

// Reset goes back to the initial delay after a successful connect
func (b *backoff) Reset() {
	b.current = b.initial
}
