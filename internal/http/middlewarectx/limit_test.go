package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests within burst", func(t *testing.T) {
		h := RateLimitMiddleware(newNoopLogger(), 0.001, 10)(okHandler(t))
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)

		for range 10 {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", w.Body.String())
		}
	})

	t.Run("blocks requests exceeding burst", func(t *testing.T) {
		h := RateLimitMiddleware(newNoopLogger(), 0.001, 1)(okHandler(t))
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.JSONEq(t, `{"error":"Too many requests"}`, w.Body.String())
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})

	t.Run("allows requests after refill", func(t *testing.T) {
		h := RateLimitMiddleware(newNoopLogger(), 20, 1)(okHandler(t))
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		time.Sleep(200 * time.Millisecond)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitMiddleware_InstancesAreIndependent(t *testing.T) {
	login := RateLimitMiddleware(newNoopLogger(), 0.001, 1)(okHandler(t))
	register := RateLimitMiddleware(newNoopLogger(), 0.001, 1)(okHandler(t))

	w := httptest.NewRecorder()
	login.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	register.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/register", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_ConcurrentRequests(t *testing.T) {
	h := RateLimitMiddleware(newNoopLogger(), 0.001, 5)(okHandler(t))
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)

	results := make(chan int, 10)
	for range 10 {
		go func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			results <- w.Code
		}()
	}

	successCount, rateLimitedCount := 0, 0
	for range 10 {
		select {
		case code := <-results:
			switch code {
			case http.StatusOK:
				successCount++
			case http.StatusTooManyRequests:
				rateLimitedCount++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for concurrent requests")
		}
	}

	assert.Equal(t, 5, successCount)
	assert.Equal(t, 5, rateLimitedCount)
}
