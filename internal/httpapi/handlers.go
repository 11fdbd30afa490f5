package httpapi

import (
	"errors"
	"net/http"
	"time"

	"calldesk-platform/internal/auth"
	"calldesk-platform/internal/calls"
	"calldesk-platform/internal/credits"
	"calldesk-platform/internal/reporting"
	"calldesk-platform/internal/users"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Users     *users.Service
	Calls     *calls.Service
	Credits   *credits.Service
	Reporting *reporting.Service
}

// --- Auth ---

type signupRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (h Handlers) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Users.SignUp(c.Request.Context(), req.Name, req.PhoneNumber, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrPhoneTaken):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "phone number already registered"})
		case errors.Is(err, users.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, pair, err := h.Users.Login(c.Request.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrBadCredentials) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid phone number or password"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h Handlers) Me(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	u, err := h.Users.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// --- Calls ---

type initiateCallRequest struct {
	Number    string `json:"number"`
	Developer string `json:"developer"`
	Project   string `json:"project"`
}

func (h Handlers) InitiateCall(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}

	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rec, err := h.Calls.Initiate(c.Request.Context(), userID, req.Number, req.Developer, req.Project)
	if err != nil {
		switch {
		case errors.Is(err, calls.ErrInvalidNumber), errors.Is(err, calls.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, calls.ErrInsufficientCredits):
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credits"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call initiation failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// CallStatus resolves the current view of a call, applying the completion
// charge on first detection.
func (h Handlers) CallStatus(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	res, err := h.Calls.ResolveForUser(c.Request.Context(), callID, userID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) ListCalls(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	records, err := h.Calls.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (h Handlers) SubmitFeedback(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	callID := c.Param("call_id")

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Feedback == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "feedback required"})
		return
	}

	if err := h.Calls.SubmitFeedback(c.Request.Context(), callID, userID, req.Feedback); err != nil {
		switch {
		case errors.Is(err, calls.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		case errors.Is(err, calls.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "feedback update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Credits ---

func (h Handlers) Balance(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	bal, err := h.Credits.Balance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, credits.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": bal})
}

// --- Reporting ---

func (h Handlers) CallsSummary(c *gin.Context) {
	userID, r, ok := h.reportingInputs(c)
	if !ok {
		return
	}
	out, err := h.Reporting.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{UserID: userID, Range: r})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) SpendSummary(c *gin.Context) {
	userID, r, ok := h.reportingInputs(c)
	if !ok {
		return
	}
	out, err := h.Reporting.SpendSummary(c.Request.Context(), reporting.SpendSummaryRequest{UserID: userID, Range: r})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) reportingInputs(c *gin.Context) (string, reporting.TimeRange, bool) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return "", reporting.TimeRange{}, false
	}

	// Defaults to the trailing 30 days when the range is omitted.
	now := time.Now().UTC()
	r := reporting.TimeRange{From: now.AddDate(0, 0, -30), To: now}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return "", reporting.TimeRange{}, false
		}
		r.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return "", reporting.TimeRange{}, false
		}
		r.To = t
	}
	return userID, r, true
}

// --- Admin ---

func (h Handlers) AdminReconcileUser(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	out, err := h.Credits.Reconcile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, credits.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) AdminReconcileAll(c *gin.Context) {
	out, err := h.Credits.ReconcileAll(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}
