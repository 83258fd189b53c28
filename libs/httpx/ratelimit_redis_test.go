package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisRateLimiterKey(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	at := time.UnixMilli(3*time.Minute.Milliseconds() + 10)
	assert.Equal(t, "rl:10.1.2.3:3", rl.key(req, at))
}

func TestRedisRateLimiterUnavailable(t *testing.T) {
	// No expectations registered: every Redis call fails.
	rdb, _ := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "test")

	rec := httptest.NewRecorder()
	rl.Middleware(nil, true)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	rl.Middleware(nil, false)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
