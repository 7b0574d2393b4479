package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		pingErr     error
		path        string
		status      int
		bodyContain string
	}{
		{"health", nil, "/health", http.StatusOK, `"healthy"`},
		{"health ignores database", errors.New("down"), "/health", http.StatusOK, `"healthy"`},
		{"ready", nil, "/ready", http.StatusOK, `"ready"`},
		{"not ready", errors.New("down"), "/ready", http.StatusServiceUnavailable, `"database ping failed"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubPinger{err: tt.pingErr})
			r := gin.New()
			r.GET("/health", h.HealthCheck)
			r.GET("/ready", h.ReadinessCheck)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.bodyContain)
		})
	}
}
