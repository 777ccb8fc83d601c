package router

import (
	"context"

	"support_chat_service/internal/support/app"
	"support_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mount the support routes, everything behind JWT except the
// swagger UI
func RegisterRoutes(r *fiber.App, wsHandler *app.SupportWebsocketHandler, restHandler *app.SupportHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)

	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	support := r.Group("/support")
	support.Post("/conversations/start", restHandler.StartConversation)
	support.Get("/conversations", restHandler.ListConversations)
	support.Get("/conversations/:id/messages", restHandler.History)
	support.Post("/conversations/:id/seen", restHandler.MarkSeen)
	support.Post("/messages", restHandler.SendMessage)
	support.Post("/upload", restHandler.Upload)

	// staff operations, role enforced in the usecase
	support.Post("/conversations/:id/close", restHandler.CloseConversation)
	support.Post("/conversations/:id/priority", restHandler.SetPriority)
	support.Post("/conversations/:id/status", restHandler.UpdateStatus)
}
