// Package context is a set of shorter names for the very stuttery context
// library.
package context

import (
	"context"
	"time"
)

type (
	// T - context.Context
	T = context.Context
	// F - context.CancelFunc
	F = context.CancelFunc
	// C - context.CancelCauseFunc
	C = context.CancelCauseFunc
)

var (
	// Bg - context.Background
	Bg = context.Background
	// Cancel - context.WithCancel
	Cancel = context.WithCancel
	// Cause - context.WithCancelCause
	Cause = context.WithCancelCause
	// Timeout - context.WithTimeout
	Timeout = context.WithTimeout
	// Canceled - context.Canceled
	Canceled = context.Canceled
	// DeadlineExceeded - context.DeadlineExceeded
	DeadlineExceeded = context.DeadlineExceeded
)

// Sleep waits for d or until c is done, whichever comes first, and reports
// whether the full duration elapsed.
func Sleep(c T, d time.Duration) (slept bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.Done():
		return false
	case <-t.C:
		return true
	}
}
