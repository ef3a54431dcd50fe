package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provider-directory/internal/api/http/handlers"
	"github.com/spec-kit/provider-directory/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Sessions       *handlers.SessionsHandler
	Providers      *handlers.ProvidersHandler
	ProfileImages  *handlers.ProfileImagesHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Login, registration and logout stay
// outside the authentication gate; every provider route sits behind it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	v1 := app.Group("/api/v1")

	v1.Post("/login", cfg.Sessions.Login)
	v1.Delete("/logout", cfg.Sessions.Logout)
	v1.Post("/register", cfg.Sessions.Register)

	v1.Get("/profile_images/:id", cfg.ProfileImages.Show)

	providers := v1.Group("/providers", cfg.AuthMiddleware.Handle)
	providers.Get("/", cfg.Providers.List)
	providers.Post("/", cfg.Providers.Create)
	providers.Get("/:id", cfg.Providers.Show)
	providers.Patch("/:id", cfg.Providers.Update)
	providers.Put("/:id", cfg.Providers.Update)
	providers.Delete("/:id", cfg.Providers.Deactivate)
	providers.Put("/:id/profile_image", cfg.Providers.AttachImage)
	providers.Delete("/:id/profile_image", cfg.Providers.RemoveImage)
}
