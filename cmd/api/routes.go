package main

import (
	"stockcall/internal/httpapi"
	"stockcall/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, callbacks telephony.CallbackHandler, api httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider callbacks (public: Twilio fetches these mid-call).
	r.GET("/voice", callbacks.Voice)
	r.POST("/voice", callbacks.Voice)
	r.POST("/gather", callbacks.Gather)
	r.GET("/audio/:filename", callbacks.Audio)

	// Operator token issuance (guarded by the shared operator key).
	r.POST("/v1/auth/token", api.IssueToken)

	// Workflow triggers place billable outbound calls; bearer token required.
	protected := r.Group("/")
	protected.Use(authMW)
	{
		protected.POST("/api/chat", api.Chat)
		protected.GET("/my-api/agent", api.RunAgent)
	}
}
