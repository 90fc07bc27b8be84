package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/tasks/{task}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/tasks/{task}", "404"))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/tasks/{task}", "404"))
	assert.Equal(t, before+1, after)
}

func TestHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "itboard_http_requests_in_flight")
}

func TestCountRejection(t *testing.T) {
	before := testutil.ToFloat64(rejectionsTotal.WithLabelValues("spam_rejected"))

	CountRejection("spam_rejected")
	CountRejection("spam_rejected")

	assert.Equal(t, before+2, testutil.ToFloat64(rejectionsTotal.WithLabelValues("spam_rejected")))
}
