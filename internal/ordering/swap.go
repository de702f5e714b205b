// Package ordering moves an item one slot by exchanging order keys with
// its neighbour under a (parent, kind, order) uniqueness constraint.
package ordering

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Item is one side of a swap.
type Item struct {
	ID    uuid.UUID
	Order int
}

// Store writes a new order key onto one row. Implementations may update
// derived columns (labels, titles) in the same write.
type Store interface {
	SetOrder(ctx context.Context, id uuid.UUID, order int) error
}

// PartialSwapError reports the write that failed. Writes before Step
// have been applied and are left in place.
type PartialSwapError struct {
	Step int
	Err  error
}

func (e *PartialSwapError) Error() string {
	return fmt.Sprintf("swap stopped at write %d of 3: %v", e.Step, e.Err)
}

func (e *PartialSwapError) Unwrap() error { return e.Err }

// Sentinel returns an order key outside every valid range.
func Sentinel(now time.Time) int {
	return -int(now.Unix())
}

// Swap exchanges the order keys of a and b with three sequential writes:
// a to a sentinel, b to a's key, a to b's key. No two rows share a key at
// any point. The sequence is not atomic.
func Swap(ctx context.Context, store Store, a, b Item) error {
	return swapAt(ctx, store, a, b, time.Now())
}

func swapAt(ctx context.Context, store Store, a, b Item, now time.Time) error {
	if a.ID == b.ID {
		return nil
	}
	steps := []struct {
		id    uuid.UUID
		order int
	}{
		{a.ID, Sentinel(now)},
		{b.ID, a.Order},
		{a.ID, b.Order},
	}
	for i, s := range steps {
		if err := store.SetOrder(ctx, s.id, s.order); err != nil {
			glog.Warningf("order swap %s<->%s failed at write %d: %v", a.ID, b.ID, i+1, err)
			return &PartialSwapError{Step: i + 1, Err: err}
		}
	}
	return nil
}
