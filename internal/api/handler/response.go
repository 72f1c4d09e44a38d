package handler

import (
	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "response": resp}.
func respondSuccess(c *gin.Context, status int, resp interface{}) {
	c.JSON(status, gin.H{
		"success":  true,
		"response": resp,
	})
}

// respondError writes {"success": false, "error": msg}.
func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}
