package service

import (
	"context"
	"fmt"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo ports.UserRepository
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo: userRepo,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// Login verifies credentials and issues a JWT. Unknown usernames and wrong
// passwords produce the same error to avoid user enumeration.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrUnauthorized()
	}

	ok, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		s.log.Warn().Str("username", username).Msg("failed login attempt")
		return nil, apperror.ErrUnauthorized()
	}

	token, expiresAt, err := s.tokenSvc.Generate(user)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
