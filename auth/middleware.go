package auth

import (
	"chat-relay/domain/chat"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber Locals key holding the authenticated chat.UserID.
const UserIDKey = "user_id"

// Middleware rejects requests without a valid "Bearer <token>" header and
// stores the caller's ID under UserIDKey.
func Middleware(issuer *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header is required")
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format. Use: Bearer <token>")
		}

		claims, err := issuer.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(UserIDKey, claims.UserID)
		return c.Next()
	}
}

// UserID returns the caller set by Middleware.
func UserID(c *fiber.Ctx) (chat.UserID, bool) {
	userID, ok := c.Locals(UserIDKey).(chat.UserID)
	return userID, ok
}
