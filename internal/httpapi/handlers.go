package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"stockcall/internal/agent"
	"stockcall/internal/auth"
	"stockcall/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WorkflowRunner is the slice of the agent the HTTP layer needs.
type WorkflowRunner interface {
	Run(ctx context.Context, userQuery string) (agent.Result, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth        *auth.Manager
	OperatorKey string
	Workflow    WorkflowRunner
}

type tokenRequest struct {
	Operator string `json:"operator"`
}

// IssueToken exchanges the shared operator key for a short-lived bearer token.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil || h.OperatorKey == "" {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	key := c.GetHeader("X-Operator-Key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.OperatorKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid operator key"})
		return
	}

	var req tokenRequest
	_ = c.ShouldBindJSON(&req)
	if req.Operator == "" {
		req.Operator = "operator"
	}

	tok, err := h.Auth.Issue(time.Now(), req.Operator)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat runs the approval workflow for a frontend message and reports the
// final verdict text.
func (h Handlers) Chat(c *gin.Context) {
	if h.Workflow == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "workflow not configured"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}

	res, err := h.Workflow.Run(c.Request.Context(), req.Message)
	if err != nil {
		logger.FromGin(c).Error("workflow failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "workflow failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "response": res.Message, "outcome": res.Outcome})
}

// RunAgent triggers the workflow with a default query; kept for the original
// demo route.
func (h Handlers) RunAgent(c *gin.Context) {
	if h.Workflow == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "workflow not configured"})
		return
	}
	res, err := h.Workflow.Run(c.Request.Context(), "Recommend me stocks to buy today")
	if err != nil {
		logger.FromGin(c).Error("workflow failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "workflow failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}
