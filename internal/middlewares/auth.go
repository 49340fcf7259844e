package middlewares

import (
	"strings"

	"github.com/fathima-sithara/conversation-service/internal/auth"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID   = "user_id"
	LocalIdentity = "identity"
)

// JWTAuth validates the bearer token and stores the caller's identity in
// c.Locals. Websocket upgrades may pass the token as ?token= instead.
func JWTAuth(v *auth.JWTValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing auth")
		}
		id, err := v.Validate(token)
		if err != nil {
			return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(LocalUserID, id.UserID)
		c.Locals(LocalIdentity, id)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// UserID returns the authenticated caller, or "" outside JWTAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func Identity(c *fiber.Ctx) auth.Identity {
	id, _ := c.Locals(LocalIdentity).(auth.Identity)
	return id
}
