package ordering

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// memStore is a transactional in-memory item table for tests.
type memStore struct {
	mu   sync.Mutex
	rows map[string]memRow
	seq  int
}

type memRow struct {
	container string
	position  int
	seq       int
	updatedAt time.Time
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]memRow)}
}

// seed appends ids to container in order, bypassing the engine.
func (s *memStore) seed(container string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		n := 0
		for _, r := range s.rows {
			if r.container == container {
				n++
			}
		}
		s.seq++
		s.rows[id] = memRow{container: container, position: n, seq: s.seq}
	}
}

// order returns the ids of container by position.
func (s *memStore) order(container string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return orderedIDs(s.rows, container)
}

func (s *memStore) positions(container string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, r := range s.rows {
		if r.container == container {
			out = append(out, r.position)
		}
	}
	slices.Sort(out)
	return out
}

func orderedIDs(rows map[string]memRow, container string) []string {
	var ids []string
	for id, r := range rows {
		if r.container == container {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		ra, rb := rows[a], rows[b]
		if ra.position != rb.position {
			return ra.position - rb.position
		}
		return ra.seq - rb.seq
	})
	return ids
}

// inTx runs fn on a snapshot and applies its write set on success. The store
// mutex is not held while fn runs, so unsynchronized callers would lose
// updates.
func (s *memStore) inTx(ctx context.Context, fn func(ctx context.Context, uow *memTx) error) error {
	s.mu.Lock()
	tx := &memTx{store: s, rows: maps.Clone(s.rows), dirty: map[string]bool{}, deleted: map[string]bool{}}
	s.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range tx.deleted {
		delete(s.rows, id)
	}
	for id := range tx.dirty {
		s.rows[id] = tx.rows[id]
	}
	return nil
}

type memTx struct {
	store   *memStore
	rows    map[string]memRow
	dirty   map[string]bool
	deleted map[string]bool
	writes  int
	failOn  string
}

var errInjected = errors.New("injected failure")

func (t *memTx) insert(id, container string) {
	t.store.mu.Lock()
	t.store.seq++
	seq := t.store.seq
	t.store.mu.Unlock()

	t.rows[id] = memRow{container: container, position: len(orderedIDs(t.rows, container)), seq: seq}
	t.dirty[id] = true
}

func (t *memTx) ListOrdered(_ context.Context, containerID string) ([]Item, error) {
	var items []Item
	for _, id := range orderedIDs(t.rows, containerID) {
		items = append(items, Item{ID: id, ContainerID: containerID, Position: t.rows[id].position})
	}
	return items, nil
}

func (t *memTx) WritePosition(_ context.Context, itemID, containerID string, position int, at time.Time) error {
	if itemID == t.failOn {
		return errInjected
	}
	r, ok := t.rows[itemID]
	if !ok {
		return errors.New("no such item " + itemID)
	}
	r.container, r.position, r.updatedAt = containerID, position, at
	t.rows[itemID] = r
	t.dirty[itemID] = true
	t.writes++
	return nil
}

func (t *memTx) Delete(_ context.Context, itemID string) error {
	if _, ok := t.rows[itemID]; !ok {
		return errors.New("no such item " + itemID)
	}
	delete(t.rows, itemID)
	delete(t.dirty, itemID)
	t.deleted[itemID] = true
	return nil
}
