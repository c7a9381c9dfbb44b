package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	rec := serve(t, New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Run("all checks up", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })
		h.RegisterCheck("redis", func(context.Context) error { return nil })

		rec := serve(t, h, "/health/ready")

		require.Equal(t, http.StatusOK, rec.Code)
		var body ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, map[string]string{"postgres": "up", "redis": "up"}, body.Checks)
	})

	t.Run("one check down", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })
		h.RegisterCheck("kafka", func(context.Context) error { return errors.New("no brokers") })

		rec := serve(t, h, "/health/ready")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "down: no brokers", body.Checks["kafka"])
		assert.Equal(t, "up", body.Checks["postgres"])
	})

	t.Run("re-registering replaces the check", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("redis", func(context.Context) error { return errors.New("down") })
		h.RegisterCheck("redis", func(context.Context) error { return nil })

		rec := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestStatusListsDependencies(t *testing.T) {
	h := New("production")
	h.RegisterCheck("redis", func(context.Context) error { return nil })
	h.RegisterCheck("kafka", func(context.Context) error { return nil })

	rec := serve(t, h, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "production", body.Environment)
	assert.Equal(t, []string{"kafka", "redis"}, body.Dependencies)
}
