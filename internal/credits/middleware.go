package credits

import (
	"context"
	"net/http"

	"calldesk-platform/internal/auth"
	"calldesk-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// BalanceService is the minimal credits interface needed by middleware.
type BalanceService interface {
	Balance(ctx context.Context, userID string) (int64, error)
}

// RequireCredits blocks the request if the caller's balance is below minimum.
//
// This is a cheap pre-check at the route boundary; the call initiation
// service re-checks under its own read, so a stale answer here is harmless.
// Admins bypass the gate.
func RequireCredits(svc BalanceService, minimum int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := auth.Role(c.Request.Context())
		if rbac.IsAdmin(role) {
			c.Next()
			return
		}

		userID, err := auth.UserID(c.Request.Context())
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
			return
		}

		bal, err := svc.Balance(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
			return
		}
		if bal < minimum {
			// 402 Payment Required is semantically appropriate.
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
			return
		}

		c.Next()
	}
}
