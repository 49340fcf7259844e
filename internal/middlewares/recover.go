package middlewares

import (
	"fmt"
	"runtime/debug"

	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"method", c.Method(),
					"path", c.Path(),
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				err = utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
			}
		}()
		return c.Next()
	}
}
