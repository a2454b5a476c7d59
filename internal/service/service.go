// Package service holds the application services of the Forge server. Each
// service validates input, works through the store, keeps the search index
// current and announces changes on the SSE manager.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forgeapp/forge-server/internal/domain"
	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/id"
	"github.com/forgeapp/forge-server/internal/store"
	"github.com/forgeapp/forge-server/internal/validation"
)

// validate is the shared request validator.
var validate = validation.New()

// Field is one field of a partial update. Set reports whether the caller
// sent it; Set with a nil Value clears the field.
type Field[T any] struct {
	Set   bool
	Value *T
}

// SetField returns a Field carrying v.
func SetField[T any](v *T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// apply returns the new value of a field currently holding current.
func (f Field[T]) apply(current *T) *T {
	if !f.Set {
		return current
	}
	return f.Value
}

// notFound maps store.ErrNotFound to a NOT_FOUND domain error naming the
// missing row. Other errors pass through.
func notFound(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("%s %s not found", kind, id)
	}
	return err
}

// requiredText trims value and fails when nothing is left.
func requiredText(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", domainerrors.ValidationWithDetails(
			fmt.Sprintf("%s is required", field),
			map[string]string{field: "is required"},
		)
	}
	return v, nil
}

// newEntity generates an id with prefix and stamps both timestamps with now.
func newEntity(prefix string, now time.Time) (domain.Entity, error) {
	entityID, err := id.Generate(prefix)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return domain.Entity{ID: entityID, CreatedAt: now, UpdatedAt: now}, nil
}

func now() time.Time {
	return time.Now().UTC()
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
