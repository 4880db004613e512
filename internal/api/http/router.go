package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visahub/crm-service/internal/api/http/handlers"
	"github.com/visahub/crm-service/internal/auth"
	"github.com/visahub/crm-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Inquiries      *handlers.InquiryHandler
	Profiles       *handlers.ProfilesHandler
	Leads          *handlers.LeadsHandler
	Appointments   *handlers.AppointmentsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Public website surface.
	app.Post("/inquiries", cfg.Inquiries.Submit)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Profiles.Register)
	authGroup.Post("/login", cfg.Profiles.Login)
	authGroup.Post("/password/reset/request", cfg.Profiles.ForgotPassword)
	authGroup.Post("/password/reset/confirm", cfg.Profiles.ResetPassword)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Profiles.ChangePassword)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	api.Get("/profiles/me", cfg.Profiles.Me)
	api.Patch("/profiles/me", cfg.Profiles.UpdateMe)
	api.Get("/profiles", cfg.Profiles.ListProfiles)

	leads := api.Group("/leads")
	leads.Post("/", cfg.Leads.CreateLead)
	leads.Get("/", cfg.Leads.ListLeads)
	leads.Get("/:id", cfg.Leads.GetLead)
	leads.Patch("/:id", cfg.Leads.UpdateLead)
	leads.Post("/:id/assign", cfg.Leads.AssignLead)
	leads.Post("/:id/status", cfg.Leads.UpdateLeadStatus)
	leads.Post("/:id/remarks", cfg.Leads.AddRemark)
	leads.Get("/:id/timeline", cfg.Leads.ListTimeline)
	leads.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Leads.DeleteLead)

	appointments := api.Group("/appointments")
	appointments.Post("/", cfg.Appointments.CreateAppointment)
	appointments.Get("/", cfg.Appointments.ListAppointments)
	appointments.Get("/:id", cfg.Appointments.GetAppointment)
	appointments.Patch("/:id", cfg.Appointments.UpdateAppointment)
	appointments.Post("/:id/status", cfg.Appointments.UpdateAppointmentStatus)

	api.Get("/dashboard/stats", cfg.Dashboard.Stats)
}
