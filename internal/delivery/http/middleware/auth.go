package middleware

import (
	"errors"
	"strings"

	"skills-tracker/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

// AdminAuthMiddleware guards mutating routes with the HMAC admin token. With
// no service configured the guard is a pass-through, matching the optional
// JWT_SECRET.
type AdminAuthMiddleware struct {
	jwt jwt.Service
}

func NewAdminAuthMiddleware(jwtSvc jwt.Service) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{jwt: jwtSvc}
}

func (m *AdminAuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m == nil || m.jwt == nil {
			return c.Next()
		}

		token, ok := bearerTokenFromHeader(c.Get("Authorization"))
		if !ok {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		if _, err := m.jwt.ValidateToken(token); err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return NewAppError(fiber.StatusUnauthorized, "Token expired", nil, err)
			}
			return NewAppError(fiber.StatusUnauthorized, "Invalid token", nil, err)
		}

		return c.Next()
	}
}

func bearerTokenFromHeader(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
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
