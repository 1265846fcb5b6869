package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fdbank/deposit-service/internal/domain"
	apperrors "github.com/fdbank/deposit-service/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and enforces the access policy.
type AuthMiddleware struct {
	tokens *TokenService
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenService, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Authenticate attaches a Principal when the request carries a valid bearer
// token. It never rejects: requests without a usable token continue
// anonymously and Authorize decides their fate.
func (m *AuthMiddleware) Authenticate(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return c.Next()
	}

	token, ok := bearerToken(header)
	if !ok {
		m.logger.Debug("ignoring non-bearer authorization header", zap.String("path", c.Path()))
		return c.Next()
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return c.Next()
	}

	principal := &Principal{Subject: claims.Subject, Role: domain.Role(claims.Role)}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Authorize rejects requests whose principal does not satisfy the policy
// requirement for the request path.
func (m *AuthMiddleware) Authorize(policy *Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		requirement := policy.RequiredRole(c.Path())
		if err := requirement.Permits(principal); err != nil {
			m.logger.Debug("request denied",
				zap.String("path", c.Path()),
				zap.String("requirement", requirement.String()),
				zap.Error(err))
			return denial(err)
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// denial maps authorization errors to the uniform client-facing errors.
func denial(err error) error {
	if errors.Is(err, ErrForbidden) {
		return apperrors.NewForbidden("access denied")
	}
	return apperrors.NewUnauthorized("authentication required")
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
