package main

import (
	directoryrouter "support_chat_service/internal/directory/router"
	supportrouter "support_chat_service/internal/support/router"

	"github.com/gofiber/fiber/v2"
)

// services are split into cmd binaries, this entry only exists so
// swag init can walk every route
// swag init output ./docs
func main() {
	app := fiber.New()

	supportrouter.RegisterRoutes(app, nil, nil)
	directoryrouter.RegisterRoutes(app, nil)
}
