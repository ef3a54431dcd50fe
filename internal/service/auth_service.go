package service

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/provider-directory/internal/auth"
	"github.com/spec-kit/provider-directory/internal/config"
	"github.com/spec-kit/provider-directory/internal/domain"
	"github.com/spec-kit/provider-directory/internal/repository"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

const minPasswordLength = 6

// Login failures never reveal whether the email or the password was wrong.
const msgInvalidCredentials = "Invalid email or password."

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account and issues a token so the account is
// immediately authenticated.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	fields := apperrors.FieldErrors{}
	if email == "" {
		fields.Add("email", "can't be blank")
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields.Add("email", "is invalid")
	}
	if password == "" {
		fields.Add("password", "can't be blank")
	} else if len(password) < minPasswordLength {
		fields.Add("password", "is too short (minimum is 6 characters)")
	}
	if !fields.Empty() {
		return nil, "", time.Time{}, apperrors.NewValidationError(fields.Join(), fields)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		fields.Add("email", "has already been taken")
		return nil, "", time.Time{}, apperrors.NewValidationError(fields.Join(), fields)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can slip past the lookup above and hit
		// the unique index; that race is still a taken email, not a 500.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			fields.Add("email", "has already been taken")
			return nil, "", time.Time{}, apperrors.NewValidationError(fields.Join(), fields)
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password collapse to the same generic error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized(msgInvalidCredentials)
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized(msgInvalidCredentials)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Authenticate resolves a raw token string to its account. Used by logout,
// which acknowledges a recognizable session without revoking anything; tokens
// are stateless and expire only by clock.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*domain.User, error) {
	claims, err := s.tokenMgr.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrTokenInvalid
		}
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
