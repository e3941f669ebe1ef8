package service

import (
	"context"
	"testing"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports/mocks"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (*AuthServiceImpl, *mocks.MockUserRepository, *mocks.MockHashService, *mocks.MockTokenService, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	userRepo := mocks.NewMockUserRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	svc := NewAuthService(userRepo, hashSvc, tokenSvc, zerolog.Nop())
	return svc, userRepo, hashSvc, tokenSvc, ctrl
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, userRepo, hashSvc, tokenSvc, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	user := &domain.User{ID: uuid.New(), Username: "acme", PasswordHash: "$hash", Role: domain.RoleMerchant}
	expiry := time.Now().Add(time.Hour)

	userRepo.EXPECT().GetByUsername(gomock.Any(), "acme").Return(user, nil)
	hashSvc.EXPECT().Verify("pw", "$hash").Return(true, nil)
	tokenSvc.EXPECT().Generate(user).Return("token-abc", expiry, nil)

	result, err := svc.Login(context.Background(), "acme", "pw")

	require.NoError(t, err)
	assert.Equal(t, "token-abc", result.Token)
	assert.Equal(t, expiry, result.ExpiresAt)
	assert.Same(t, user, result.User)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	svc, userRepo, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	userRepo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(nil, nil)

	_, err := svc.Login(context.Background(), "ghost", "pw")
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, userRepo, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	user := &domain.User{ID: uuid.New(), Username: "acme", PasswordHash: "$hash"}
	userRepo.EXPECT().GetByUsername(gomock.Any(), "acme").Return(user, nil)
	hashSvc.EXPECT().Verify("wrong", "$hash").Return(false, nil)

	_, err := svc.Login(context.Background(), "acme", "wrong")
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
}
