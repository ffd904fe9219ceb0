package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ContextKey fiber Locals에 저장되는 인증 컨텍스트 키
const ContextKey = "authContext"

// Middleware JWT 인증 미들웨어 (토큰 필수)
func Middleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := extractToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization token",
			})
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			if err == ErrExpiredToken {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals(ContextKey, Subject(claims.UID()))
		c.Locals("claims", claims)
		return c.Next()
	}
}

// OptionalMiddleware 선택적 인증 미들웨어
//
// A missing token resolves to the anonymous actor; an invalid one stays
// unresolved (Pending), which downstream scope resolution treats as
// deny. The request itself proceeds either way.
func OptionalMiddleware(jwtManager *JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := extractToken(c)
		if !ok {
			c.Locals(ContextKey, Anonymous())
			return c.Next()
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			c.Locals(ContextKey, Pending)
			return c.Next()
		}

		c.Locals(ContextKey, Subject(claims.UID()))
		c.Locals("claims", claims)
		return c.Next()
	}
}

// FromFiber returns the auth context stored by the middleware.
func FromFiber(c *fiber.Ctx) Context {
	if ac, ok := c.Locals(ContextKey).(Context); ok {
		return ac
	}
	return Pending
}

// extractToken pulls the bearer token from the Authorization header, the
// access_token cookie, or (for websocket upgrades) the token query
// parameter.
func extractToken(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	if header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1], true
		}
		return "", false
	}
	if cookie := c.Cookies("access_token"); cookie != "" {
		return cookie, true
	}
	if q := c.Query("token"); q != "" {
		return q, true
	}
	return "", false
}
