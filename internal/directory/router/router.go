package router

import (
	"support_chat_service/internal/directory/app"
	"support_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mount the directory routes. Register and login stay open,
// everything else sits behind JWT.
func RegisterRoutes(r *fiber.App, handler *app.DirectoryHandler) {
	directory := r.Group("/directory")
	directory.Post("/register", handler.Register)
	directory.Post("/login", handler.Login)

	directory.Use(middlewares.JWTMiddleware())
	directory.Post("/logout", handler.Logout)
	directory.Post("/devices", handler.RegisterDevice)
	directory.Post("/tenants", handler.CreateTenant)
	directory.Get("/tenants", handler.ListTenants)
}
