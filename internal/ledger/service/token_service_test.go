package service

import (
	"testing"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_RoundTrip(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "orchexpay")

	merchantID := uuid.New()
	user := &domain.User{ID: uuid.New(), Role: domain.RoleVendor, MerchantID: &merchantID}

	token, expiresAt, err := svc.Generate(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	principal, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, domain.RoleVendor, principal.Role)
	require.NotNil(t, principal.MerchantID)
	assert.Equal(t, merchantID, *principal.MerchantID)
}

func TestJWTTokenService_AdminHasNoMerchantScope(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "orchexpay")

	token, _, err := svc.Generate(&domain.User{ID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	principal, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin())
	assert.Nil(t, principal.MerchantID)
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	issuer := NewJWTTokenService("secret-a", time.Hour, "orchexpay")
	validator := NewJWTTokenService("secret-b", time.Hour, "orchexpay")

	token, _, err := issuer.Generate(&domain.User{ID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = validator.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", -time.Minute, "orchexpay")

	token, _, err := svc.Generate(&domain.User{ID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_GarbageToken(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "orchexpay")
	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}
