package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward-api/internal/api/shared"
	"github.com/phrazzld/taskward-api/internal/domain"
	"github.com/phrazzld/taskward-api/internal/mocks"
	"github.com/phrazzld/taskward-api/internal/service/auth"
	"github.com/phrazzld/taskward-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "a-long-enough-password"

// seedUser stores a user with a bcrypt hash of testPassword.
func seedUser(t *testing.T, userStore *mocks.MockUserStore, email string) *domain.User {
	t.Helper()

	user, err := domain.NewUser(email, testPassword)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user.HashedPassword = string(hash)
	user.Password = ""

	require.NoError(t, userStore.Create(context.Background(), user))
	return user
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAuthHandler_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user and returns token pair", func(t *testing.T) {
		t.Parallel()

		userStore := mocks.NewMockUserStore()
		handler := NewAuthHandler(userStore, auth.NewMockJWTService(), auth.NewBcryptVerifier())

		rec := postJSON(t, handler.Register,
			`{"email": "new@example.com", "password": "`+testPassword+`"}`)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEqual(t, uuid.Nil, resp.UserID)
		assert.Equal(t, "mock-jwt-token", resp.AccessToken)
		assert.Equal(t, "mock-refresh-token", resp.RefreshToken)
	})

	t.Run("duplicate email maps to 409", func(t *testing.T) {
		t.Parallel()

		userStore := mocks.NewMockUserStore()
		seedUser(t, userStore, "taken@example.com")

		handler := NewAuthHandler(userStore, auth.NewMockJWTService(), auth.NewBcryptVerifier())

		rec := postJSON(t, handler.Register,
			`{"email": "taken@example.com", "password": "`+testPassword+`"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejects short password", func(t *testing.T) {
		t.Parallel()

		handler := NewAuthHandler(
			mocks.NewMockUserStore(),
			auth.NewMockJWTService(),
			auth.NewBcryptVerifier(),
		)

		rec := postJSON(t, handler.Register,
			`{"email": "new@example.com", "password": "short"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials return token pair", func(t *testing.T) {
		t.Parallel()

		userStore := mocks.NewMockUserStore()
		user := seedUser(t, userStore, "login@example.com")

		handler := NewAuthHandler(userStore, auth.NewMockJWTService(), auth.NewBcryptVerifier())

		rec := postJSON(t, handler.Login,
			`{"email": "login@example.com", "password": "`+testPassword+`"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, user.ID, resp.UserID)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("successful login records the login time", func(t *testing.T) {
		t.Parallel()

		userStore := mocks.NewMockUserStore()
		user := seedUser(t, userStore, "login@example.com")

		var saved *domain.User
		userStore.UpdateFn = func(ctx context.Context, u *domain.User) error {
			saved = u
			return nil
		}

		handler := NewAuthHandler(userStore, auth.NewMockJWTService(), auth.NewBcryptVerifier())

		rec := postJSON(t, handler.Login,
			`{"email": "login@example.com", "password": "`+testPassword+`"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, saved)
		assert.Equal(t, user.ID, saved.ID)
		require.NotNil(t, saved.LastLoginAt)
		assert.WithinDuration(t, time.Now().UTC(), *saved.LastLoginAt, time.Minute)
	})

	t.Run("failed login-time update does not block the login", func(t *testing.T) {
		t.Parallel()

		userStore := mocks.NewMockUserStore()
		seedUser(t, userStore, "login@example.com")
		userStore.UpdateFn = func(ctx context.Context, u *domain.User) error {
			return store.ErrUpdateFailed
		}

		handler := NewAuthHandler(userStore, auth.NewMockJWTService(), auth.NewBcryptVerifier())

		rec := postJSON(t, handler.Login,
			`{"email": "login@example.com", "password": "`+testPassword+`"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin account is issued admin tokens", func(t *testing.T) {
		t.Parallel()

		userStore := mocks.NewMockUserStore()
		user := seedUser(t, userStore, "admin@example.com")
		user.IsAdmin = true

		jwtService := auth.NewMockJWTService()
		var tokenIsAdmin bool
		jwtService.GenerateTokenFunc = func(ctx context.Context, id uuid.UUID, isAdmin bool) (string, error) {
			tokenIsAdmin = isAdmin
			return "admin-token", nil
		}

		handler := NewAuthHandler(userStore, jwtService, auth.NewBcryptVerifier())

		rec := postJSON(t, handler.Login,
			`{"email": "admin@example.com", "password": "`+testPassword+`"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, tokenIsAdmin)
	})

	t.Run("wrong password returns 401", func(t *testing.T) {
		t.Parallel()

		userStore := mocks.NewMockUserStore()
		seedUser(t, userStore, "login@example.com")

		handler := NewAuthHandler(userStore, auth.NewMockJWTService(), auth.NewBcryptVerifier())

		rec := postJSON(t, handler.Login,
			`{"email": "login@example.com", "password": "definitely wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email returns the same 401 as a wrong password", func(t *testing.T) {
		t.Parallel()

		handler := NewAuthHandler(
			mocks.NewMockUserStore(),
			auth.NewMockJWTService(),
			auth.NewBcryptVerifier(),
		)

		rec := postJSON(t, handler.Login,
			`{"email": "ghost@example.com", "password": "`+testPassword+`"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp shared.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Invalid credentials", resp.Error)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("valid refresh token returns new pair", func(t *testing.T) {
		t.Parallel()

		jwtService := auth.NewMockJWTService()
		handler := NewAuthHandler(mocks.NewMockUserStore(), jwtService, auth.NewBcryptVerifier())

		rec := postJSON(t, handler.RefreshToken, `{"refresh_token": "mock-refresh-token"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp RefreshTokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "mock-jwt-token", resp.AccessToken)
		assert.Equal(t, "mock-refresh-token", resp.RefreshToken)
	})

	t.Run("expired refresh token maps to 401", func(t *testing.T) {
		t.Parallel()

		jwtService := auth.NewMockJWTService()
		jwtService.ValidationError = auth.ErrExpiredToken

		handler := NewAuthHandler(mocks.NewMockUserStore(), jwtService, auth.NewBcryptVerifier())

		rec := postJSON(t, handler.RefreshToken, `{"refresh_token": "stale"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		t.Parallel()

		handler := NewAuthHandler(
			mocks.NewMockUserStore(),
			auth.NewMockJWTService(),
			auth.NewBcryptVerifier(),
		)

		rec := postJSON(t, handler.RefreshToken, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
