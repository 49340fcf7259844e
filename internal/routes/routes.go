package routes

import (
	"github.com/fathima-sithara/conversation-service/internal/handlers"
	"github.com/fathima-sithara/conversation-service/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
)

type Options struct {
	// Auth guards every /v1 and /ws route.
	Auth fiber.Handler
	// SendLimit throttles message sends per user. Optional.
	SendLimit fiber.Handler
	// ServeMedia mounts GET /media/* for the in-process blob store.
	ServeMedia bool
}

func Setup(app *fiber.App, h *handlers.Handler, opts Options) {
	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if opts.ServeMedia {
		app.Get("/media/*", h.ServeMedia)
	}

	app.Get("/ws/conversations/:peer_id", handlers.UpgradeOnly, opts.Auth, websocket.New(h.Conversation))

	api := app.Group("/v1", opts.Auth)

	send := []fiber.Handler{h.SendMessage}
	if opts.SendLimit != nil {
		send = append([]fiber.Handler{opts.SendLimit}, send...)
	}
	api.Post("/messages", send...)
	api.Get("/messages/:msg_id", h.GetMessage)
	api.Delete("/messages/:msg_id", h.DeleteMessage)

	conv := api.Group("/conversations")
	conv.Get("/:peer_id/messages", h.History)
	conv.Post("/:peer_id/read", h.MarkRead)

	chats := api.Group("/chats")
	chats.Get("/", h.ListChats)
	chats.Get("/:peer_id", h.GetChat)
	chats.Delete("/:peer_id", h.HideChat)

	favs := api.Group("/favorites")
	favs.Post("/", h.AddFavorite)
	favs.Get("/", h.ListFavorites)
	favs.Delete("/:id", h.RemoveFavorite)

	verify := api.Group("/verification")
	verify.Post("/phone", h.RequestPhoneCode)
	verify.Post("/phone/verify", h.VerifyPhoneCode)

	tick := api.Group("/blue-tick")
	tick.Post("/", h.ApplyBlueTick)
	tick.Get("/me", h.MyBlueTick)
	tick.Get("/pending", h.PendingBlueTicks)
	tick.Post("/:id/review", h.ReviewBlueTick)

	pres := api.Group("/presence")
	pres.Put("/", h.SetPresence)
	pres.Get("/:user_id", h.GetPresence)
}
