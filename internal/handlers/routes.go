package handlers

import (
	"net/http"

	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires every API route onto the engine
func RegisterRoutes(r *gin.Engine, h *Handlers, sessions *session.Manager) {
	r.GET("/health", Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// OAuth flows. The Google flow issues the session; the Clio flow
	// only hands tokens back to the browser.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitAuth())
	{
		authGroup.GET("/google/login", h.GoogleLogin)
		authGroup.GET("/google/callback", h.GoogleCallback)
		authGroup.GET("/clio/login", h.ClioLogin)
		authGroup.POST("/signout", h.SignOut)
	}
	api.GET("/auth/me", middleware.RequireSession(sessions), h.Me)

	// Generic provider proxy. Auth here is the token in the body, not
	// the dashboard session.
	api.POST("/clio", h.ClioProxy)
	api.GET("/clio/token", middleware.RateLimitAuth(), h.ClioTokenExchange)

	// Everything below needs the Google session.
	protected := api.Group("")
	protected.Use(middleware.RequireSession(sessions))
	{
		protected.GET("/calendar", h.Calendar)

		protected.GET("/matters", h.Matters)
		protected.GET("/matters/:id", h.MatterDetails)
		protected.GET("/tasks", h.Tasks)
		protected.GET("/tasks/:id", h.TaskDetails)
		protected.GET("/task_types", h.TaskTypes)
		protected.GET("/kpis", h.KPIs)
		protected.GET("/notifications", h.Notifications)

		protected.GET("/emails", h.Emails)
		protected.POST("/emails/read", h.MarkEmailRead)
		protected.POST("/emails/unread", h.MarkEmailUnread)
		protected.POST("/emails/archive", h.ArchiveEmail)
		protected.POST("/emails/reply", h.ReplyEmail)
		protected.POST("/emails/forward", h.ForwardEmail)

		protected.POST("/chat", middleware.RateLimitChat(), h.Chat)
	}
}

// Health reports liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
