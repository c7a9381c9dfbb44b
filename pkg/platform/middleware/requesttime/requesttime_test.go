package requesttime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartgn/pkg/requestcontext"

	"github.com/stretchr/testify/assert"
)

func TestMiddlewarePinsTime(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	var first, second time.Time
	h := WithClock(func() time.Time { return fixed })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		time.Sleep(time.Millisecond)
		second = requestcontext.Now(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, fixed, first)
	assert.Equal(t, first, second)
}

func TestNowFallsBackOutsideRequests(t *testing.T) {
	before := time.Now()
	got := requestcontext.Now(context.Background())
	assert.False(t, got.Before(before))
}

func TestMiddlewareUsesWallClock(t *testing.T) {
	var got time.Time
	Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.WithinDuration(t, time.Now(), got, time.Second)
	assert.Equal(t, time.UTC, got.Location())
}
