package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	t.Run("valid user", func(t *testing.T) {
		t.Parallel()

		user, err := NewUser("person@example.com", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, "person@example.com", user.Email)
		assert.False(t, user.IsAdmin)
	})

	t.Run("empty email", func(t *testing.T) {
		t.Parallel()

		_, err := NewUser("", "correct-horse-battery")
		assert.ErrorIs(t, err, ErrEmptyEmail)
	})

	t.Run("malformed email", func(t *testing.T) {
		t.Parallel()

		for _, email := range []string{"no-at-sign", "@nodomain", "user@", "user@nodot"} {
			_, err := NewUser(email, "correct-horse-battery")
			assert.ErrorIs(t, err, ErrInvalidEmailFormat, "email %q", email)
		}
	})

	t.Run("password too short", func(t *testing.T) {
		t.Parallel()

		_, err := NewUser("person@example.com", "short")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("password too long", func(t *testing.T) {
		t.Parallel()

		_, err := NewUser("person@example.com", strings.Repeat("x", 73))
		assert.ErrorIs(t, err, ErrPasswordTooLong)
	})
}

func TestUser_Validate_StoredUser(t *testing.T) {
	t.Parallel()

	// Users loaded from storage have a hash but no plaintext password.
	user, err := NewUser("person@example.com", "correct-horse-battery")
	require.NoError(t, err)

	user.Password = ""
	user.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)
}

func TestUser_RecordLogin(t *testing.T) {
	t.Parallel()

	user, err := NewUser("person@example.com", "correct-horse-battery")
	require.NoError(t, err)
	require.Nil(t, user.LastLoginAt)

	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	user.RecordLogin(now)

	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, now, *user.LastLoginAt)
	assert.Equal(t, now, user.UpdatedAt)
}
