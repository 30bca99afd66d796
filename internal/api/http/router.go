package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketops/triage-service/internal/api/http/handlers"
	"github.com/ticketops/triage-service/internal/auth"
	"github.com/ticketops/triage-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/me", cfg.Users.Me)
	users.Get("/handlers", auth.RequireRole(domain.RoleHandler, domain.RoleAdmin), cfg.Users.ListHandlers)
	users.Post("/update", auth.RequireRole(domain.RoleAdmin), cfg.Users.UpdateUser)
	users.Get("/:id/stats", auth.RequireRole(domain.RoleHandler, domain.RoleAdmin), cfg.Tickets.UserStats)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/engine-config", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.EngineConfig)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
}
