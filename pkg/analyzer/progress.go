package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc receives the number of files finished so far, the number
// expected and the file that just finished.
type ProgressFunc func(current, total int, path string)

// Tracker counts finished files across worker goroutines.
// A nil *Tracker ignores every call, so workers never need to check.
type Tracker struct {
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker that reports through callback (may be nil).
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected total by n.
func (t *Tracker) Add(n int) {
	if t == nil {
		return
	}
	t.total.Add(int64(n))
}

// SetTotal replaces the expected total.
func (t *Tracker) SetTotal(n int) {
	if t == nil {
		return
	}
	t.total.Store(int64(n))
}

// Tick records that path is finished and notifies the callback.
func (t *Tracker) Tick(path string) {
	if t == nil {
		return
	}
	current := int(t.current.Add(1))
	if t.callback != nil {
		t.callback(current, int(t.total.Load()), path)
	}
}

// Current returns how many files have finished.
func (t *Tracker) Current() int {
	if t == nil {
		return 0
	}
	return int(t.current.Load())
}

// Total returns the expected total.
func (t *Tracker) Total() int {
	if t == nil {
		return 0
	}
	return int(t.total.Load())
}

// Done reports whether every expected file has finished.
func (t *Tracker) Done() bool {
	return t.Current() >= t.Total()
}

type trackerKey struct{}

// WithTracker attaches t to ctx for the file processing layer.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker attached to ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
