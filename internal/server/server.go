package server

import (
	"errors"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/handlers"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"github.com/fathima-sithara/conversation-service/internal/middlewares"
	"github.com/fathima-sithara/conversation-service/internal/routes"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

type Options struct {
	AppName      string
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// IPLimit is applied to every request when set.
	IPLimit fiber.Handler
	Routes  routes.Options
}

// New initializes the Fiber application with middlewares and routes.
func New(opts Options, h *handlers.Handler, logger *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      opts.AppName,
		BodyLimit:    opts.BodyLimit,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		ErrorHandler: errorHandler(logger),
	})

	// Global Middlewares
	app.Use(middlewares.Recovery(logger))
	app.Use(cors.New())
	app.Use(middlewares.RequestLogger(logger))
	app.Use(metrics.Middleware())
	if opts.IPLimit != nil {
		app.Use(opts.IPLimit)
	}

	routes.Setup(app, h, opts.Routes)
	return app
}

func errorHandler(logger *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, msg = fe.Code, fe.Message
		} else {
			logger.Errorw("unhandled error", "path", c.Path(), "error", err)
		}
		return utils.JSONError(c, code, msg)
	}
}
