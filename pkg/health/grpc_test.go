package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestRunChecks(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	redisUp := true
	s := NewServer(log, time.Second, map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis": func(context.Context) error {
			if redisUp {
				return nil
			}
			return errors.New("connection refused")
		},
	})
	ctx := context.Background()

	s.RunChecks(ctx)
	overall, err := s.Status(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, overall)

	redisUp = false
	s.RunChecks(ctx)

	overall, err = s.Status(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, overall)

	pg, err := s.Status(ctx, "postgres")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, pg)

	rd, err := s.Status(ctx, "redis")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, rd)
}

func TestLiveness(t *testing.T) {
	s := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), time.Second, map[string]Check{
		"postgres": func(context.Context) error { return errors.New("down") },
	})
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	s.Liveness(now)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Watch Store API is running",
		"data":{"status":"SERVING","timestamp":"2024-03-01T12:00:00Z"}}`, rec.Body.String())

	s.RunChecks(context.Background())
	rec = httptest.NewRecorder()
	s.Liveness(now)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, rec.Body.String(), `"status":"NOT_SERVING"`)
}
