package ratelimit

import (
	"context"
	"time"
)

// SentCounter is the message store query the window is computed from.
type SentCounter interface {
	CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error)
	OldestSentSince(ctx context.Context, senderID string, since time.Time) (time.Time, bool, error)
}

// SlidingWindow allows at most Limit sends per sender within any Window.
// State lives in the message store, so the check is shared by every process
// but not atomic with the insert: concurrent sends may briefly exceed Limit.
type SlidingWindow struct {
	counter SentCounter
	window  time.Duration
	limit   int
}

// NewSlidingWindow allows limit sends per window, counted from counter.
func NewSlidingWindow(counter SentCounter, window time.Duration, limit int) *SlidingWindow {
	return &SlidingWindow{counter: counter, window: window, limit: limit}
}

// Allow reports whether senderID may send at now. When it may not, the
// returned duration is how long until the oldest send in the window falls
// out of it.
func (w *SlidingWindow) Allow(ctx context.Context, senderID string, now time.Time) (bool, time.Duration, error) {
	since := now.Add(-w.window)
	count, err := w.counter.CountSentSince(ctx, senderID, since)
	if err != nil {
		return false, 0, err
	}
	if count < w.limit {
		return true, 0, nil
	}

	oldest, ok, err := w.counter.OldestSentSince(ctx, senderID, since)
	if err != nil {
		return false, 0, err
	}
	if !ok {
		return false, w.window, nil
	}
	return false, retryAfter(oldest.Add(w.window).Sub(now)), nil
}

// Window is the span sends are counted over.
func (w *SlidingWindow) Window() time.Duration { return w.window }

// Limit is the number of sends allowed per Window.
func (w *SlidingWindow) Limit() int { return w.limit }

// Stored timestamps have microsecond precision, so never hint less.
func retryAfter(d time.Duration) time.Duration {
	if d < time.Microsecond {
		return time.Microsecond
	}
	return d
}
