package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pulseworks/pulse-tasks/internal/database"
	"github.com/pulseworks/pulse-tasks/internal/models"
)

// RequirePulseAccess checks if the user is a member of the pulse
func RequirePulseAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get pulse ID from URL parameter
		pulseIDStr := c.Param("id")
		pulseID, err := strconv.ParseUint(pulseIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid pulse ID",
			})
			c.Abort()
			return
		}

		// Get current user ID
		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		// Check if pulse exists
		var pulse models.Pulse
		if err := database.GetDB().First(&pulse, pulseID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Pulse not found",
			})
			c.Abort()
			return
		}

		// Check if user is a member
		var member models.PulseMember
		err = database.GetDB().Where("pulse_id = ? AND user_id = ?", pulseID, userID).First(&member).Error
		if err != nil {
			// Return 404 instead of 403 to avoid leaking pulse existence
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Pulse not found",
			})
			c.Abort()
			return
		}

		// Store pulse and membership in context
		c.Set("pulse", pulse)
		c.Set("pulse_member", member)
		c.Next()
	}
}

// RequirePulseOwner checks if the user is an owner of the pulse
func RequirePulseOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get pulse member from context (set by RequirePulseAccess)
		memberInterface, exists := c.Get("pulse_member")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Pulse access required",
			})
			c.Abort()
			return
		}

		member, ok := memberInterface.(models.PulseMember)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Invalid pulse member data",
			})
			c.Abort()
			return
		}

		// Check if user is owner
		if member.Role != models.RoleOwner {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Only pulse owners can perform this action",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
