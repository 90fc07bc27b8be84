package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itchan-dev/itboard/shared/middleware/throttle"
	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIPRateLimit(t *testing.T) {
	h := IPRateLimit(throttle.New(0.001, 2, time.Hour))(okHandler)

	assert.Equal(t, http.StatusOK, request(h, "1.2.3.4:1000").Code)
	assert.Equal(t, http.StatusOK, request(h, "1.2.3.4:1001").Code, "port must not matter")
	assert.Equal(t, http.StatusTooManyRequests, request(h, "1.2.3.4:1002").Code)
	assert.Equal(t, http.StatusOK, request(h, "5.6.7.8:1000").Code)
}

func TestIPRateLimit_IgnoresSpoofedHeaders(t *testing.T) {
	h := IPRateLimit(throttle.New(0.001, 1, time.Hour))(okHandler)

	assert.Equal(t, http.StatusOK, request(h, "1.2.3.4:1000").Code)

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.RemoteAddr = "1.2.3.4:1000"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestIPRateLimit_InvalidRemoteAddr(t *testing.T) {
	h := IPRateLimit(throttle.New(1, 1, time.Hour))(okHandler)

	assert.Equal(t, http.StatusBadRequest, request(h, "garbage").Code)
}

func TestGlobalRateLimit(t *testing.T) {
	h := GlobalRateLimit(throttle.New(0.001, 1, time.Hour))(okHandler)

	assert.Equal(t, http.StatusOK, request(h, "1.2.3.4:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(h, "5.6.7.8:1").Code)
}
