package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates active user with hashed password", func(t *testing.T) {
		user, err := NewUser(tenantID, "jdoe", "s3cret-pass")

		require.NoError(t, err)
		assert.Equal(t, tenantID, user.TenantID)
		assert.Equal(t, UserStatusActive, user.Status)
		assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
		assert.True(t, user.VerifyPassword("s3cret-pass"))
		assert.False(t, user.VerifyPassword("wrong"))
	})

	t.Run("rejects empty username", func(t *testing.T) {
		_, err := NewUser(tenantID, "  ", "s3cret-pass")
		assert.Error(t, err)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewUser(tenantID, "jdoe", "short")
		assert.Error(t, err)
	})
}

func TestUserLoginState(t *testing.T) {
	tenantID := uuid.New()

	t.Run("deactivated user cannot login", func(t *testing.T) {
		user, err := NewUser(tenantID, "jdoe", "s3cret-pass")
		require.NoError(t, err)

		assert.True(t, user.CanLogin())

		user.Deactivate()
		assert.False(t, user.CanLogin())
		assert.True(t, user.IsDeactivated())

		user.Activate()
		assert.True(t, user.CanLogin())
	})

	t.Run("login success resets failures and stamps the login", func(t *testing.T) {
		user, err := NewUser(tenantID, "jdoe", "s3cret-pass")
		require.NoError(t, err)
		user.FailedAttempts = 3

		user.RecordLoginSuccess("10.0.0.1")

		assert.Equal(t, 0, user.FailedAttempts)
		assert.Equal(t, "10.0.0.1", user.LastLoginIP)
		require.NotNil(t, user.LastLoginAt)
	})

	t.Run("repeated failures lock the account", func(t *testing.T) {
		user, err := NewUser(tenantID, "jdoe", "s3cret-pass")
		require.NoError(t, err)

		locked := false
		for i := 0; i < 5; i++ {
			locked = user.RecordLoginFailure(5, 15*time.Minute)
		}

		assert.True(t, locked)
		assert.True(t, user.IsLocked())
		assert.False(t, user.CanLogin())
	})
}
