package frontdesk

import (
	"context"
	"fmt"
)

// Compensation describes an optimistic local change around a server call.
type Compensation[S any] struct {
	// Snapshot captures the state Restore puts back.
	Snapshot func() S
	// Apply patches local state before the call. Optional.
	Apply func()
	Restore func(S)
	// Refresh reloads authoritative state after success. Optional.
	Refresh func(ctx context.Context) error
}

// Compensate snapshots, applies, calls, and restores the snapshot if the call
// fails. A failed Refresh does not restore: the server already accepted the
// change.
func Compensate[S any](ctx context.Context, c Compensation[S], call func(ctx context.Context) error) error {
	snap := c.Snapshot()
	if c.Apply != nil {
		c.Apply()
	}

	if err := call(ctx); err != nil {
		c.Restore(snap)
		return err
	}

	if c.Refresh != nil {
		if err := c.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh after change: %w", err)
		}
	}
	return nil
}
