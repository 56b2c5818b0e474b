package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// protectedHandler records whether it was reached and what user ID it saw.
type protectedHandler struct {
	called bool
	userID uuid.UUID
	found  bool
}

func (h *protectedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, h.found = GetUserID(r)
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("valid token reaches handler with user ID", func(t *testing.T) {
		t.Parallel()

		jwtService := auth.NewMockJWTService()
		next := &protectedHandler{}
		handler := NewAuthMiddleware(jwtService).Authenticate(next)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, next.called)
		assert.True(t, next.found)
		assert.Equal(t, jwtService.Claims.UserID, next.userID)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		t.Parallel()

		next := &protectedHandler{}
		handler := NewAuthMiddleware(auth.NewMockJWTService()).Authenticate(next)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		t.Parallel()

		next := &protectedHandler{}
		handler := NewAuthMiddleware(auth.NewMockJWTService()).Authenticate(next)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("admin claim carried into context", func(t *testing.T) {
		t.Parallel()

		jwtService := auth.NewMockJWTService()
		jwtService.Claims.IsAdmin = true

		var sawAdmin bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawAdmin = IsAdmin(r)
		})
		handler := NewAuthMiddleware(jwtService).Authenticate(next)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.True(t, sawAdmin)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		t.Parallel()

		jwtService := auth.NewMockJWTService()
		jwtService.ValidationError = auth.ErrExpiredToken

		next := &protectedHandler{}
		handler := NewAuthMiddleware(jwtService).Authenticate(next)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer stale-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	t.Parallel()

	t.Run("admin token reaches handler", func(t *testing.T) {
		t.Parallel()

		jwtService := auth.NewMockJWTService()
		jwtService.Claims.IsAdmin = true

		next := &protectedHandler{}
		m := NewAuthMiddleware(jwtService)
		handler := m.Authenticate(m.RequireAdmin(next))

		req := httptest.NewRequest(http.MethodPost, "/maintenance", nil)
		req.Header.Set("Authorization", "Bearer admin-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, next.called)
	})

	t.Run("non-admin token rejected with 403", func(t *testing.T) {
		t.Parallel()

		next := &protectedHandler{}
		m := NewAuthMiddleware(auth.NewMockJWTService())
		handler := m.Authenticate(m.RequireAdmin(next))

		req := httptest.NewRequest(http.MethodPost, "/maintenance", nil)
		req.Header.Set("Authorization", "Bearer user-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		t.Parallel()

		next := &protectedHandler{}
		m := NewAuthMiddleware(auth.NewMockJWTService())
		handler := m.RequireAdmin(next)

		req := httptest.NewRequest(http.MethodPost, "/maintenance", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
	})
}
