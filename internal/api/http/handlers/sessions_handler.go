package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provider-directory/internal/api/dto"
	"github.com/spec-kit/provider-directory/internal/service"
	apperrors "github.com/spec-kit/provider-directory/pkg/util"
)

// SessionsHandler exposes login, logout and registration endpoints.
type SessionsHandler struct {
	auth *service.AuthService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(authService *service.AuthService) *SessionsHandler {
	return &SessionsHandler{auth: authService}
}

// Login handles POST /api/v1/login.
func (h *SessionsHandler) Login(c *fiber.Ctx) error {
	var req dto.SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	email, password := req.Credentials()
	user, token, _, err := h.auth.Login(c.Context(), email, password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status": fiber.Map{"code": 200, "message": "Logged in successfully."},
		"data":   dto.NewUserData(user),
		"token":  token,
	})
}

// Logout handles DELETE /api/v1/logout. Tokens are stateless so nothing is
// revoked server-side; the endpoint only acknowledges a recognizable session.
func (h *SessionsHandler) Logout(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token != "" {
		if _, err := h.auth.Authenticate(c.Context(), token); err == nil {
			return c.JSON(fiber.Map{
				"status":  200,
				"message": "Logged out successfully.",
			})
		}
	}

	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
		"status":  401,
		"message": "Couldn't find an active session.",
	})
}

// Register handles POST /api/v1/register.
func (h *SessionsHandler) Register(c *fiber.Ctx) error {
	var req dto.SessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}

	email, password := req.Credentials()
	user, token, _, err := h.auth.Register(c.Context(), email, password)
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "VALIDATION_FAILED" {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"status": fiber.Map{"message": domainErr.Message},
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"status": fiber.Map{"code": 200, "message": "Signed up successfully."},
		"data":   dto.NewUserData(user),
		"token":  token,
	})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
