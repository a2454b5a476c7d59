// Package ordering keeps items densely positioned inside their containers.
//
// Cards live in columns and columns live in boards. Every container holds its
// items at positions 0..n-1 after any insert, move or delete. Mutations run
// the read-then-rewrite of Place inside a single transaction while holding a
// per-container lock, so concurrent requests on the same container serialize
// and a failed step rolls the whole operation back.
package ordering

import (
	"context"
	"fmt"
	"time"
)

// Item is one positioned row.
type Item struct {
	ID          string
	ContainerID string
	Position    int
}

// UnitOfWork is the transactional view of the store the engine works on.
type UnitOfWork interface {
	// ListOrdered returns the container's items by position, ties broken by
	// creation order.
	ListOrdered(ctx context.Context, containerID string) ([]Item, error)
	// WritePosition moves an item to containerID at position and touches its
	// updated time.
	WritePosition(ctx context.Context, itemID, containerID string, position int, at time.Time) error
	// Delete removes an item.
	Delete(ctx context.Context, itemID string) error
}

// Container is the order of one container after an operation.
type Container struct {
	ID      string   `json:"containerId"`
	ItemIDs []string `json:"itemIds"`
}

// Result describes what an operation did. Containers lists every container
// touched, the destination first.
type Result struct {
	Containers []Container `json:"containers"`
	Writes     int         `json:"writes"`
}

func (r *Result) merge(other Result) {
	r.Containers = append(r.Containers, other.Containers...)
	r.Writes += other.Writes
}

// Place rewrites containerID so its items hold positions 0..n-1.
//
// When movingID is set, the item is spliced in at index: nil appends, a
// negative index means 0 and an index past the end appends. The item may
// currently live in another container. Only rows whose container or position
// change are written, so placing an item at the index it already holds
// writes nothing. With movingID nil the call only compacts.
func Place(ctx context.Context, uow UnitOfWork, containerID string, movingID *string, index *int, now time.Time) (Result, error) {
	items, err := uow.ListOrdered(ctx, containerID)
	if err != nil {
		return Result{}, fmt.Errorf("list container %s: %w", containerID, err)
	}

	current := make(map[string]int, len(items))
	ids := make([]string, 0, len(items)+1)
	for _, it := range items {
		current[it.ID] = it.Position
		if movingID != nil && it.ID == *movingID {
			continue
		}
		ids = append(ids, it.ID)
	}

	if movingID != nil {
		at := len(ids)
		if index != nil {
			at = min(max(*index, 0), len(ids))
		}
		ids = append(ids, "")
		copy(ids[at+1:], ids[at:])
		ids[at] = *movingID
	}

	writes := 0
	for pos, id := range ids {
		if prev, ok := current[id]; ok && prev == pos {
			continue
		}
		if err := uow.WritePosition(ctx, id, containerID, pos, now); err != nil {
			return Result{}, fmt.Errorf("write position of %s: %w", id, err)
		}
		writes++
	}

	return Result{
		Containers: []Container{{ID: containerID, ItemIDs: ids}},
		Writes:     writes,
	}, nil
}
