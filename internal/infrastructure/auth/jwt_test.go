package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashtonex/maasim/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:          "test-secret-at-least-32-characters!",
		TokenExpiration: time.Hour,
		Issuer:          "maasim",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()
	accountID := uuid.New()

	issued, err := svc.GenerateToken(accountID, "reader@example.com", false)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.True(t, issued.ExpiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, "reader@example.com", claims.Email)
	assert.False(t, claims.IsAdmin)
	assert.Equal(t, "maasim", claims.Issuer)

	parsed, err := claims.GetAccountUUID()
	require.NoError(t, err)
	assert.Equal(t, accountID, parsed)
}

func TestJWTService_AdminClaim(t *testing.T) {
	svc := newTestJWTService()

	issued, err := svc.GenerateToken(uuid.New(), "admin@example.com", true)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestJWTService_ValidateToken_Errors(t *testing.T) {
	svc := newTestJWTService()

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:          "a-completely-different-secret-value",
			TokenExpiration: time.Hour,
			Issuer:          "maasim",
		})
		issued, err := other.GenerateToken(uuid.New(), "reader@example.com", false)
		require.NoError(t, err)

		_, err = svc.ValidateToken(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		shortLived := NewJWTService(config.JWTConfig{
			Secret:          "test-secret-at-least-32-characters!",
			TokenExpiration: -time.Minute,
			Issuer:          "maasim",
		})
		// Negative expiration falls back to the default, so force it
		shortLived.expiration = -time.Minute

		issued, err := shortLived.GenerateToken(uuid.New(), "reader@example.com", false)
		require.NoError(t, err)

		_, err = svc.ValidateToken(issued.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestJWTService_DefaultExpiration(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret: "test-secret-at-least-32-characters!",
		Issuer: "maasim",
	})
	assert.Equal(t, 24*time.Hour, svc.TokenExpiration())
}
