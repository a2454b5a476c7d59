package api

// DeletedResponse acknowledges a delete.
type DeletedResponse struct {
	ID      string `json:"id" doc:"ID of the deleted resource"`
	Deleted bool   `json:"deleted" doc:"Always true"`
}

// DeletedOutput wraps the delete acknowledgement for Huma.
type DeletedOutput struct {
	Body DeletedResponse
}

func deleted(id string) *DeletedOutput {
	return &DeletedOutput{Body: DeletedResponse{ID: id, Deleted: true}}
}

// values copies pointed-to items into a slice that always encodes as an
// array, never null.
func values[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}
