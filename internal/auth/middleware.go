package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/provider-directory/internal/domain"
	"github.com/spec-kit/provider-directory/internal/repository"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

const currentUserKey = "current_user"

// Client-visible 401 bodies. The missing-header case and the bad-token case
// are the only two messages ever revealed; which sub-case failed is logged,
// never returned.
const (
	msgUnauthorized = "Unauthorized"
	msgInvalidToken = "Token has expired or is invalid"
)

// Middleware validates bearer tokens and resolves the current user.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	logger *zap.Logger
}

// NewMiddleware constructs the authentication gate.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, logger: logger}
}

// Handle enforces authentication for protected routes. It runs once per
// request, before any resource logic, and either attaches the resolved account
// or short-circuits with a 401.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized(msgUnauthorized)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized(msgUnauthorized)
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			m.logger.Debug("rejected expired token", zap.String("path", c.Path()))
		} else {
			m.logger.Debug("rejected invalid token", zap.String("path", c.Path()))
		}
		return apperrors.NewUnauthorized(msgInvalidToken)
	}

	userID, err := claims.UserID()
	if err != nil {
		return apperrors.NewUnauthorized(msgInvalidToken)
	}

	user, err := m.users.GetByID(c.Context(), userID)
	if err != nil {
		// A valid token whose subject no longer exists is still unauthorized,
		// not an internal error.
		if errors.Is(err, pgx.ErrNoRows) {
			m.logger.Debug("rejected token for unknown subject", zap.Int64("user_id", userID))
			return apperrors.NewUnauthorized(msgInvalidToken)
		}
		return apperrors.MapError(err)
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

// CurrentUser retrieves the authenticated account from the request context.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(currentUserKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
