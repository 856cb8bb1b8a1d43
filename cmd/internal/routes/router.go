package routes

import (
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/utils"

	"github.com/labstack/echo/v4"
)

type Router struct {
	Users        *DefaultUserRoute
	Appointments *DefaultAppointmentRoute
	Scheduling   *DefaultSchedulingRoute
	Admin        *DefaultAdminRoute
	Tokens       utils.TokenParser
	Roles        RoleLookup
}

func (r *Router) Register(e *echo.Echo) {
	auth := Authenticate(r.Tokens)

	api := e.Group("/api")

	// Users, signup and login are open
	api.POST("/users", r.Users.CreateUser)
	api.POST("/users/login", r.Users.CreateLogin)
	api.POST("/users/verify", r.Users.VerifySignup)
	api.GET("/users", r.Users.GetUsers, auth)
	api.GET("/users/:id", r.Users.GetUser, auth)

	// Appointments
	appts := api.Group("/appointments", auth)
	appts.GET("", r.Appointments.GetAppointments)
	appts.POST("", r.Appointments.CreateAppointment)
	appts.GET("/export.ics", r.Appointments.ExportCalendar)
	appts.DELETE("/:id", r.Appointments.DeleteAppointment)

	// Pseudo-entity "Calendar" to check the availability of a new appointment
	api.GET("/calendar", r.Appointments.GetCalendar, auth)

	// Scheduling heuristics
	sched := api.Group("/scheduling", auth)
	sched.GET("/duration", r.Scheduling.EstimateDuration)
	sched.GET("/no-show", r.Scheduling.PredictNoShow)
	sched.GET("/alternatives", r.Scheduling.FindAlternatives)

	// Admin
	admin := api.Group("/admin", auth)
	admin.PUT("/users/:id/role", r.Admin.UpdateRole, RequireRole(r.Roles, entity.RoleAdmin))
	admin.GET("/audit-logs", r.Admin.ListAuditLogs, RequireRole(r.Roles, entity.RoleModerator, entity.RoleAdmin))
}
