package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// quietPaths are hit by load balancers and scrapers and only logged on failure.
var quietPaths = map[string]bool{"/healthz": true, "/metrics": true}

// RequestLogger writes one line per request. The level follows the status
// class: 5xx at error, 4xx at warn, the rest at info.
func RequestLogger(logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"route", c.Route().Path,
			"ip", c.IP(),
			"status", status,
			"latency", time.Since(start),
		}
		if uid, ok := c.Locals(LocalUserID).(string); ok && uid != "" {
			fields = append(fields, "user_id", uid)
		}
		if peer := c.Params("peer_id"); peer != "" {
			fields = append(fields, "peer_id", peer)
		}
		if err != nil {
			fields = append(fields, "error", err)
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Errorw("HTTP Request Error", fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warnw("HTTP Request Rejected", fields...)
		case !quietPaths[c.Path()]:
			logger.Infow("HTTP Request", fields...)
		}
		return err
	}
}
