package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/fdbank/deposit-service/internal/api/http/handlers"
	"github.com/fdbank/deposit-service/internal/auth"
	"github.com/fdbank/deposit-service/internal/domain"
	"github.com/fdbank/deposit-service/internal/observability"
)

// NewApp builds the fiber application. Routing is case sensitive so a path
// that dodges a policy rule by case cannot reach a handler either.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:       name,
		CaseSensitive: true,
		ErrorHandler:  ErrorHandler,
	})
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Deposits       *handlers.DepositHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes behind the access policy.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	policy := cfg.Policy
	if policy == nil {
		policy = auth.DefaultPolicy()
	}
	app.Use(cfg.AuthMiddleware.Authenticate, cfg.AuthMiddleware.Authorize(policy))

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	api.Get("/me", auth.RequireAuthenticated(), cfg.Auth.Me)

	fd := api.Group("/fd")
	fd.Post("/calculate", cfg.Deposits.Calculate)
	fd.Post("/invest", auth.RequireRole(domain.RoleCustomer), cfg.Deposits.Invest)

	customer := api.Group("/customer", auth.RequireRole(domain.RoleCustomer))
	customer.Get("/dashboard", cfg.Deposits.Dashboard)

	manager := api.Group("/manager", auth.RequireRole(domain.RoleBankManager))
	manager.Get("/customers", cfg.Deposits.Customers)
}
