package routes

import (
	"leads-organizer-backend/controllers"
	"leads-organizer-backend/middlewares"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Handlers bundles everything the routes need.
type Handlers struct {
	DB        *gorm.DB
	Auth      *middlewares.Authenticator
	Health    *controllers.HealthController
	Leads     *controllers.LeadController
	Admin     *controllers.AdminController
	Operators *controllers.AuthController
}

// Register wires all HTTP routes.
func Register(app *fiber.App, h Handlers) {
	app.Get("/healthz", h.Health.Check)

	api := app.Group("/api")

	// Website form endpoint
	api.Get("/leads", h.Leads.Submit)
	api.Post("/leads", h.Leads.Submit)

	// Public auth endpoints
	api.Post("/login", h.Operators.Login)
	api.Post("/logout", h.Operators.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(h.Auth.Middleware())
	protected.Use(middlewares.Idempotency(h.DB))

	protected.Post("/operators", h.Operators.CreateOperator)
	protected.Get("/me", h.Operators.Me)

	admin := protected.Group("/admin")
	admin.Get("/leads", h.Admin.ListLeads)
	admin.Get("/leads/export", h.Admin.ExportLeads)
	admin.Post("/leads/bulk-delete", h.Admin.BulkDelete)
	admin.Delete("/leads/:id", h.Admin.DeleteLead)
	admin.Get("/deliveries", h.Admin.ListDeliveries)
}
