// Package page drives the desk-booking page: probing the toggle, clicking
// it and reloading.
package page

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned when the toggle does not appear before the
// wait times out.
var ErrElementNotFound = errors.New("toggle element not found")

// Page is one loaded instance of the target page.
type Page interface {
	// Toggle probes the toggle once. found is false when the element is
	// not on the page yet.
	Toggle(ctx context.Context) (checked, found bool, err error)
	Click(ctx context.Context) error
	// Reload navigates the page again; page-local state is lost.
	Reload(ctx context.Context) error
}

// Await calls probe every interval until it reports done, the timeout
// elapses or ctx is cancelled. It returns false on timeout and an error only
// when probe fails or ctx is cancelled.
func Await(ctx context.Context, timeout, interval time.Duration, probe func(context.Context) (bool, error)) (bool, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := probe(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

// WaitForToggle waits for the toggle to appear and returns its state, or
// ErrElementNotFound after timeout.
func WaitForToggle(ctx context.Context, p Page, timeout, interval time.Duration) (bool, error) {
	var checked bool
	found, err := Await(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		c, ok, err := p.Toggle(ctx)
		if err != nil {
			return false, err
		}
		checked = c
		return ok, nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		return false, ErrElementNotFound
	}
	return checked, nil
}
