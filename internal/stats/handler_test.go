package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartgn/internal/authz"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/requestcontext"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	summary   Summary
	dashboard *Dashboard
	err       error
	officer   id.OfficerID
}

func (r *stubReader) Statistics(context.Context) (Summary, error) { return r.summary, r.err }

func (r *stubReader) Dashboard(_ context.Context, officerID id.OfficerID) (*Dashboard, error) {
	r.officer = officerID
	return r.dashboard, r.err
}

func serve(t *testing.T, reader Reader, path string, role authz.Role, subject string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{Subject: subject, Role: string(role)})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(reader, slog.New(slog.DiscardHandler)).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleStatistics(t *testing.T) {
	reader := &stubReader{summary: Summary{Total: 2, Pending: 2, ByType: map[string]int{"x": 2}}}

	rec := serve(t, reader, "/gn/requests/stats/statistics", authz.RoleAdmin, id.NewOfficerID().String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":2,"pending":2,"verified":0,"completed":0,"declined":0,"byType":{"x":2}}`, rec.Body.String())

	rec = serve(t, reader, "/gn/requests/stats/statistics", authz.RoleUser, id.NewUserID().String())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleDashboard(t *testing.T) {
	t.Run("scoped to the calling officer", func(t *testing.T) {
		officer := id.NewOfficerID()
		reader := &stubReader{dashboard: &Dashboard{Stats: Counts{TotalRequests: 1}, RecentRequests: []RecentRequest{}}}

		rec := serve(t, reader, "/gn/dashboard", authz.RoleVillageOfficer, officer.String())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, officer, reader.officer)

		var body Dashboard
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Stats.TotalRequests)
	})

	t.Run("admins have no dashboard", func(t *testing.T) {
		rec := serve(t, &stubReader{}, "/gn/dashboard", authz.RoleAdmin, id.NewOfficerID().String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("storage failure is a 500", func(t *testing.T) {
		reader := &stubReader{err: dErrors.New(dErrors.CodeInternal, "failed to count requests")}
		rec := serve(t, reader, "/gn/dashboard", authz.RoleVillageOfficer, id.NewOfficerID().String())
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
