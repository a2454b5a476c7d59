package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/spaces/{spaceId}/boards", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := counterValue(t, httpRequestsTotal.WithLabelValues("GET", "/spaces/{spaceId}/boards", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/spaces/space-1/boards", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	after := counterValue(t, httpRequestsTotal.WithLabelValues("GET", "/spaces/{spaceId}/boards", "418"))
	assert.Equal(t, before+1, after)
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	var w http.ResponseWriter = rw
	flusher, ok := w.(http.Flusher)
	require.True(t, ok)
	flusher.Flush()
	assert.True(t, rec.Flushed)
}
