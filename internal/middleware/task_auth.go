package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pulseworks/pulse-tasks/internal/database"
	"github.com/pulseworks/pulse-tasks/internal/models"
)

// RequireTaskAccess checks if the user has access to a task.
// User must be a member of the task's owning entity.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get task ID from URL parameter
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid task ID",
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

		// Check if task exists and load relations
		var task models.Task
		if err := database.GetDB().
			Preload("Creator").
			Preload("TaskStatus").
			Preload("Assignees").
			Preload("Assignees.User").
			First(&task, taskID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			c.Abort()
			return
		}

		// Membership lives on the owning entity. Only pulses carry members
		// today; tasks under any other owner are invisible here.
		// Return 404 instead of 403 to avoid leaking task existence.
		if task.EntityType != models.EntityTypePulse {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			c.Abort()
			return
		}

		var member models.PulseMember
		err = database.GetDB().
			Where("pulse_id = ? AND user_id = ?", task.EntityID, userID).
			First(&member).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			c.Abort()
			return
		}

		c.Set("task", task)
		c.Next()
	}
}
