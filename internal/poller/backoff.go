// Package poller runs one perpetual poll task per device.
package poller

import (
	"sync"
	"time"
)

// Backoff defaults.
const (
	DefaultShortRetry = 15 * time.Second
	DefaultLongRetry  = 30 * time.Second
	DefaultThreshold  = 5
)

// Backoff keeps one consecutive-failure counter per device class and turns
// it into the delay before the next poll. It is a two-tier policy: a short
// retry while the counter stays at or below the threshold, then one long
// retry after which the counter starts over.
type Backoff struct {
	Short     time.Duration
	Long      time.Duration
	Threshold int

	mu       sync.Mutex
	failures map[string]int
}

// NewBackoff creates a policy with the default intervals.
func NewBackoff() *Backoff {
	return &Backoff{
		Short:     DefaultShortRetry,
		Long:      DefaultLongRetry,
		Threshold: DefaultThreshold,
		failures:  make(map[string]int),
	}
}

// Success resets the counter of class.
func (b *Backoff) Success(class string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[class] = 0
}

// Failure records a failure of class and returns the retry delay. escalated
// is true when the counter crossed the threshold and was reset.
func (b *Backoff) Failure(class string) (delay time.Duration, escalated bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures == nil {
		b.failures = make(map[string]int)
	}
	b.failures[class]++
	if b.failures[class] > b.Threshold {
		b.failures[class] = 0
		return b.Long, true
	}
	return b.Short, false
}

// Count returns the current counter of class.
func (b *Backoff) Count(class string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[class]
}
