package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, remoteAddr: "1.1.1.1:1", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 10.0.0.3 "}, remoteAddr: "1.1.1.1:1", want: "10.0.0.3"},
		{name: "remote addr", remoteAddr: "192.168.1.5:4321", want: "192.168.1.5"},
		{name: "remote addr without port", remoteAddr: "192.168.1.6", want: "192.168.1.6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, Config{CORSOrigin: "https://app.example"})

	rec := serve(s, httptest.NewRequest(http.MethodOptions, "/scan/image", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	rec := serve(s, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRateLimitMiddleware(t *testing.T) {
	s, _ := newTestServer(t, Config{RateLimitRPS: 0.01, RateLimitBurst: 1})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Health checks are not limited.
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
