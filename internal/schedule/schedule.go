// Package schedule drives repeated reconciliation passes.
package schedule

import (
	"context"
	"fmt"
	"time"
)

// DefaultInterval is the pause between passes when none is configured.
const DefaultInterval = 60 * time.Second

// Every calls fn once right away, then again interval after each call
// returns, until ctx is done. Runs never overlap, and a slow run pushes the
// next one back instead of being skipped.
//
// Cancelling ctx interrupts the wait between runs; a run that is already in
// progress only sees the cancellation through the ctx it is passed.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		fn(ctx)

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}
