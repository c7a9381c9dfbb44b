package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartgn/pkg/requestcontext"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testSubject = "550e8400-e29b-41d4-a716-446655440001"

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRevocationChecker struct {
	mock.Mock
}

func (m *MockRevocationChecker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

type captureHandler struct {
	called    bool
	principal requestcontext.Principal
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.principal, _ = requestcontext.PrincipalFrom(r.Context())
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	validator *MockTokenValidator
	revoker   *MockRevocationChecker
	next      *captureHandler
	handler   http.Handler
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.validator = new(MockTokenValidator)
	s.revoker = new(MockRevocationChecker)
	s.next = &captureHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = RequireAuth(s.validator, s.revoker, logger)(s.next)
}

func (s *AuthMiddlewareSuite) TearDownTest() {
	s.validator.AssertExpectations(s.T())
	s.revoker.AssertExpectations(s.T())
}

func (s *AuthMiddlewareSuite) serve(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/gn/requests", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func validClaims() *Claims {
	return &Claims{
		Subject:   testSubject,
		Email:     "officer@gn.lk",
		Role:      "VILLAGE_OFFICER",
		Kind:      "village_officer",
		JTI:       "jti-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (s *AuthMiddlewareSuite) TestValidTokenPopulatesPrincipal() {
	s.validator.On("ValidateToken", "good").Return(validClaims(), nil)
	s.revoker.On("IsRevoked", mock.Anything, "jti-1").Return(false, nil)

	rec := s.serve("Bearer good")

	s.Equal(http.StatusOK, rec.Code)
	s.Require().True(s.next.called)
	s.Equal(testSubject, s.next.principal.Subject)
	s.Equal("VILLAGE_OFFICER", s.next.principal.Role)
	s.Equal("village_officer", s.next.principal.Kind)
	s.Equal("jti-1", s.next.principal.TokenID)
}

func (s *AuthMiddlewareSuite) TestRevokedTokenIsRejected() {
	s.validator.On("ValidateToken", "revoked").Return(validClaims(), nil)
	s.revoker.On("IsRevoked", mock.Anything, "jti-1").Return(true, nil)

	rec := s.serve("Bearer revoked")

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Body.String(), "Token has been revoked")
	s.False(s.next.called)
}

func (s *AuthMiddlewareSuite) TestMissingJTIIsRejected() {
	claims := validClaims()
	claims.JTI = ""
	s.validator.On("ValidateToken", "nojti").Return(claims, nil)

	rec := s.serve("Bearer nojti")

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(s.next.called)
}

func (s *AuthMiddlewareSuite) TestRevocationStoreFailure() {
	s.validator.On("ValidateToken", "good").Return(validClaims(), nil)
	s.revoker.On("IsRevoked", mock.Anything, "jti-1").Return(false, errors.New("redis down"))

	rec := s.serve("Bearer good")

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.False(s.next.called)
}

func (s *AuthMiddlewareSuite) TestMalformedSubject() {
	claims := validClaims()
	claims.Subject = "not-a-uuid"
	s.validator.On("ValidateToken", "odd").Return(claims, nil)
	s.revoker.On("IsRevoked", mock.Anything, "jti-1").Return(false, nil)

	rec := s.serve("Bearer odd")

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(s.next.called)
}

func (s *AuthMiddlewareSuite) TestInvalidToken() {
	s.validator.On("ValidateToken", "forged").Return(nil, errors.New("signature"))

	rec := s.serve("Bearer forged")

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Body.String(), "Invalid or expired token")
}

func (s *AuthMiddlewareSuite) TestMalformedHeaders() {
	for _, header := range []string{"", "Basic abc", "bearer abc", "Bearer ", "Bearer    "} {
		s.Run(header, func() {
			s.next.called = false
			rec := s.serve(header)
			s.Equal(http.StatusUnauthorized, rec.Code)
			s.False(s.next.called)
		})
	}
}

func TestRequireAuthWithoutRevocationChecker(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateToken", "good").Return(validClaims(), nil)
	next := &captureHandler{}
	h := RequireAuth(validator, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !next.called {
		t.Fatal("expected handler to run")
	}
}
