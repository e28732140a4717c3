// pkg/vizlog/diagnostics.go

package vizlog

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// DropReason classifies why a record was silently discarded. Logging calls
// never fail; these are the side channel for observing swallowed failures.
type DropReason string

const (
	// DropNoSession: a record was logged with no active session.
	DropNoSession DropReason = "no_session"
	// DropTransport: the channel rejected the emission.
	DropTransport DropReason = "transport_error"
)

// diagnostics tracks swallowed delivery failures for one client.
type diagnostics struct {
	dropped atomic.Uint64

	mu   sync.Mutex
	hook func(reason DropReason, err error)
}

func (d *diagnostics) drop(reason DropReason, err error) {
	d.dropped.Add(1)

	d.mu.Lock()
	hook := d.hook
	d.mu.Unlock()

	if hook != nil {
		hook(reason, err)
	}
}

func (d *diagnostics) setHook(hook func(reason DropReason, err error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hook = hook
}

func (d *diagnostics) count() uint64 {
	return d.dropped.Load()
}

// RateLimitedDropWriter returns a drop hook that reports discarded records to
// w at most perSecond times per second, so a disconnected program cannot
// flood its own stderr.
func RateLimitedDropWriter(w io.Writer, perSecond float64) func(DropReason, error) {
	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	var mu sync.Mutex

	return func(reason DropReason, err error) {
		if !limiter.Allow() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			_, _ = fmt.Fprintf(w, "vizlog: record dropped (%s): %v\n", reason, err)
		} else {
			_, _ = fmt.Fprintf(w, "vizlog: record dropped (%s)\n", reason)
		}
	}
}
