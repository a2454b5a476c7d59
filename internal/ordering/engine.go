package ordering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgeapp/forge-server/internal/metrics"
)

// ErrNotInContainer is returned when the item of a Reorder, Move or Remove
// is not in the container the caller named. A concurrent request moved or
// deleted it after the caller read it; re-read and retry.
var ErrNotInContainer = errors.New("item is not in the container")

// TxFunc runs fn inside one transaction, committing when fn returns nil and
// rolling back otherwise.
type TxFunc[U UnitOfWork] func(ctx context.Context, fn func(ctx context.Context, uow U) error) error

// Engine applies ordering operations under per-container locks. One engine
// serves one kind of container (cards in columns, columns in boards).
type Engine[U UnitOfWork] struct {
	name   string
	inTx   TxFunc[U]
	locks  *KeyedMutex
	now    func() time.Time
	logger *slog.Logger
}

// NewEngine creates an engine. name labels logs and metrics.
func NewEngine[U UnitOfWork](name string, inTx TxFunc[U], logger *slog.Logger) *Engine[U] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine[U]{
		name:   name,
		inTx:   inTx,
		locks:  NewKeyedMutex(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("engine", name),
	}
}

// Run locks containerIDs and runs fn in one transaction. Callers use it for
// inserts that create a row and then Place it.
func (e *Engine[U]) Run(ctx context.Context, containerIDs []string, fn func(ctx context.Context, uow U) error) error {
	unlock, err := e.locks.LockAll(ctx, containerIDs...)
	if err != nil {
		return err
	}
	defer unlock()

	return e.inTx(ctx, fn)
}

// Now returns the timestamp the engine stamps on rewritten rows.
func (e *Engine[U]) Now() time.Time {
	return e.now()
}

// Reorder places movingID at index inside containerID, or compacts the
// container when movingID is nil.
func (e *Engine[U]) Reorder(ctx context.Context, containerID string, movingID *string, index *int) (Result, error) {
	var res Result
	err := e.Run(ctx, []string{containerID}, func(ctx context.Context, uow U) error {
		if movingID != nil {
			if err := requireIn(ctx, uow, containerID, *movingID); err != nil {
				return err
			}
		}
		var err error
		res, err = Place(ctx, uow, containerID, movingID, index, e.now())
		return err
	})
	return e.finish("reorder", res, err)
}

// Move places itemID at index in toContainer and compacts fromContainer, in
// one transaction holding both locks. A move within one container is a
// Reorder.
func (e *Engine[U]) Move(ctx context.Context, itemID, fromContainer, toContainer string, index *int) (Result, error) {
	if fromContainer == toContainer {
		return e.Reorder(ctx, toContainer, &itemID, index)
	}

	var res Result
	err := e.Run(ctx, []string{fromContainer, toContainer}, func(ctx context.Context, uow U) error {
		if err := requireIn(ctx, uow, fromContainer, itemID); err != nil {
			return err
		}
		now := e.now()
		dest, err := Place(ctx, uow, toContainer, &itemID, index, now)
		if err != nil {
			return err
		}
		src, err := Place(ctx, uow, fromContainer, nil, nil, now)
		if err != nil {
			return err
		}
		res = dest
		res.merge(src)
		return nil
	})
	return e.finish("move", res, err)
}

// Remove deletes itemID and compacts containerID.
func (e *Engine[U]) Remove(ctx context.Context, containerID, itemID string) (Result, error) {
	var res Result
	err := e.Run(ctx, []string{containerID}, func(ctx context.Context, uow U) error {
		if err := requireIn(ctx, uow, containerID, itemID); err != nil {
			return err
		}
		if err := uow.Delete(ctx, itemID); err != nil {
			return err
		}
		var err error
		res, err = Place(ctx, uow, containerID, nil, nil, e.now())
		return err
	})
	return e.finish("remove", res, err)
}

func requireIn(ctx context.Context, uow UnitOfWork, containerID, itemID string) error {
	items, err := uow.ListOrdered(ctx, containerID)
	if err != nil {
		return fmt.Errorf("list container %s: %w", containerID, err)
	}
	for _, it := range items {
		if it.ID == itemID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not in %s", ErrNotInContainer, itemID, containerID)
}

func (e *Engine[U]) finish(op string, res Result, err error) (Result, error) {
	if err != nil {
		metrics.ReorderOperations.WithLabelValues(e.name, op, "error").Inc()
		return Result{}, err
	}
	metrics.ReorderOperations.WithLabelValues(e.name, op, "ok").Inc()
	metrics.PositionWrites.WithLabelValues(e.name).Add(float64(res.Writes))
	e.logger.Debug("ordering applied", "op", op, "writes", res.Writes, "containers", len(res.Containers))
	return res, nil
}
