package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fdbank/deposit-service/internal/api/dto"
	"github.com/fdbank/deposit-service/internal/auth"
	"github.com/fdbank/deposit-service/internal/service"
	apperrors "github.com/fdbank/deposit-service/pkg/util"
)

// AuthHandler exposes registration, login and the caller's profile.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(authPayload(result))
}

// Login handles POST /api/auth/login. A client that prefers text/plain gets
// the bare token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	if c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextPlain) == fiber.MIMETextPlain {
		return c.SendString(result.Token)
	}
	return c.JSON(authPayload(result))
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.auth.Profile(c.UserContext(), principal.Subject)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.MeResponse{
			User:      dto.NewUserResponse(user),
			ExpiresAt: principal.ExpiresAt,
		},
	})
}

func authPayload(result *service.AuthResult) fiber.Map {
	return fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(result.User),
			"auth": dto.AuthResponse{Token: result.Token, TokenType: "Bearer", ExpiresAt: result.ExpiresAt},
		},
	}
}
