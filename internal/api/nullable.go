package api

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/service"
)

// Nullable is a request field that tells apart "absent", "null" and a value.
// Absent leaves Set false; null sets Set with a nil Value.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON records that the field was present.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON writes the value or null.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Schema describes the field as T or null.
func (n Nullable[T]) Schema(r huma.Registry) *huma.Schema {
	inner := r.Schema(reflect.TypeFor[T](), false, "")
	schema := *inner
	schema.Nullable = true
	return &schema
}

// Field converts to the service's partial update field.
func (n Nullable[T]) Field() service.Field[T] {
	if !n.Set {
		return service.Field[T]{}
	}
	return service.SetField(n.Value)
}
