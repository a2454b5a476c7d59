package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgeapp/forge-server/internal/store"
)

func TestError_WrappedSentinelStillMatches(t *testing.T) {
	cause := errors.New("no rows")
	err := fmt.Errorf("get board: %w", store.ErrNotFound.WithCause(cause))

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, store.ErrAlreadyExists)
}

func TestError_Status(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, store.ErrNotFound.GetStatus())
	assert.Equal(t, http.StatusConflict, store.ErrAlreadyExists.HTTPCode())
	assert.Equal(t, "invalid input: bad", store.ErrInvalidInput.WithCause(errors.New("bad")).Error())
}
