package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Messages       *handlers.MessagesHandler
	Agent          *handlers.AgentHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	AuthRateLimit  fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	if cfg.AuthRateLimit != nil {
		authGroup.Use(cfg.AuthRateLimit)
	}
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	account := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(domain.RoleUser, domain.RoleAgent))
	account.Get("/profile", cfg.Auth.Profile)
	account.Put("/password", cfg.Auth.ChangePassword)

	user := api.Group("/user", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleUser))
	user.Post("/tickets", cfg.Tickets.CreateTicket)
	user.Get("/tickets", cfg.Tickets.ListTickets)
	user.Get("/tickets/:id", cfg.Tickets.GetTicket)
	user.Patch("/tickets/:id/close", cfg.Tickets.CloseTicket)
	user.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)
	user.Post("/tickets/:id/messages", cfg.Messages.SendMessage)
	user.Get("/tickets/:id/messages", cfg.Messages.ListMessages)

	agent := api.Group("/agent", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAgent))
	agent.Get("/tickets", cfg.Agent.ListTickets)
	agent.Patch("/tickets/:id", cfg.Agent.UpdateTicket)
	agent.Get("/tickets/:id/messages", cfg.Agent.ListMessages)
	agent.Post("/tickets/:id/messages", cfg.Agent.SendMessage)
	agent.Get("/tickets/:id/ai-logs", cfg.Agent.ListAILogs)
	agent.Get("/messages/:id", cfg.Agent.GetMessage)
}
