package main

import (
	"database/sql"
	"net/http"
	"time"

	"calldesk-platform/internal/auth"
	"calldesk-platform/internal/credits"
	"calldesk-platform/internal/httpapi"
	"calldesk-platform/internal/rbac"
	"calldesk-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager, creditsSvc *credits.Service, db *sql.DB) {
	// Public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/v1/signup", h.Signup)
	r.POST("/v1/login", h.Login)

	// Authenticated
	v1 := r.Group("/v1", auth.RequireAccessToken(authManager))

	v1.GET("/me", h.Me)
	v1.GET("/credits/balance", h.Balance)

	// Initiation is gated on holding at least one minute-block of credit.
	v1.POST("/calls", credits.RequireCredits(creditsSvc, creditsSvc.PerMinute()), h.InitiateCall)
	v1.GET("/calls", h.ListCalls)
	v1.GET("/calls/:call_id/status", h.CallStatus)
	v1.POST("/calls/:call_id/feedback", h.SubmitFeedback)

	v1.GET("/reports/calls", h.CallsSummary)
	v1.GET("/reports/spend", h.SpendSummary)

	// Admin
	admin := v1.Group("/admin", rbac.RequireAnyRole(rbac.RoleAdmin))
	admin.POST("/credits/reconcile", h.AdminReconcileAll)
	admin.POST("/credits/reconcile/:user_id", h.AdminReconcileUser)
}
