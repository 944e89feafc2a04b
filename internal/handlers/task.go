package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulseworks/pulse-tasks/internal/database"
	"github.com/pulseworks/pulse-tasks/internal/dto"
	apierrors "github.com/pulseworks/pulse-tasks/internal/errors"
	"github.com/pulseworks/pulse-tasks/internal/middleware"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/pulseworks/pulse-tasks/internal/services"
	"github.com/pulseworks/pulse-tasks/internal/utils"
)

type TaskHandler struct {
	taskService   *services.TaskService
	statusUpdates *services.StatusUpdateService
	ordering      *services.OrderingService
}

func NewTaskHandler(taskService *services.TaskService, statusUpdates *services.StatusUpdateService, ordering *services.OrderingService) *TaskHandler {
	return &TaskHandler{
		taskService:   taskService,
		statusUpdates: statusUpdates,
		ordering:      ordering,
	}
}

// ListTasks returns tasks of a pulse the user is a member of
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	pulseID, err := strconv.ParseUint(c.Query("pulse_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid pulse_id")
		return
	}

	// Verify user is a member of this pulse
	var member models.PulseMember
	if err := database.GetDB().
		Where("pulse_id = ? AND user_id = ?", pulseID, userID).
		First(&member).Error; err != nil {
		apierrors.Forbidden(c, "You are not a member of this pulse")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := repository.TaskFilter{
		EntityType: models.EntityTypePulse,
		EntityID:   pulseID,
		Search:     c.Query("q"),
		Page:       params.Page,
		PageSize:   params.Limit,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.Status(statusStr)
		if !status.IsValid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		filter.Status = &status
	}
	if v := c.Query("task_status_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task_status_id")
			return
		}
		filter.TaskStatusID = &id
	}
	if v := c.Query("assignee_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_id")
			return
		}
		filter.AssigneeID = &id
	}
	if v := c.Query("parent_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid parent_id")
			return
		}
		filter.ParentID = &id
	}
	if c.Query("roots") == "true" {
		filter.RootsOnly = true
	}

	tasks, total, err := h.taskService.ListTasks(filter)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// GetTask returns a specific task by ID
// Task access is verified by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskInterface, exists := c.Get("task")
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	task := taskInterface.(models.Task)

	deps, err := h.taskService.Dependencies(task.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to load dependencies")
		return
	}

	taskDTO := dto.ToTaskDTO(task)
	taskDTO.Dependencies = deps
	c.JSON(http.StatusOK, taskDTO)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SourceRequest struct {
		Type string `json:"type" binding:"required"`
		ID   uint64 `json:"id" binding:"required"`
	}
	type CreateTaskRequest struct {
		Title         string          `json:"title" binding:"required"`
		Description   string          `json:"description"`
		Type          models.TaskType `json:"type"`
		Status        *models.Status  `json:"status"`
		TaskStatusID  *uint64         `json:"task_status_id"`
		PulseID       uint64          `json:"pulse_id" binding:"required"`
		ParentID      *uint64         `json:"parent_id"`
		DueDate       *time.Time      `json:"due_date"`
		Source        *SourceRequest  `json:"source"`
		AssigneeIDs   []uint64        `json:"assignee_ids"`
		DependencyIDs []uint64        `json:"dependency_ids"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	// Verify user is a member of the pulse
	var member models.PulseMember
	if err := database.GetDB().
		Where("pulse_id = ? AND user_id = ?", req.PulseID, userID).
		First(&member).Error; err != nil {
		apierrors.Forbidden(c, "You are not a member of this pulse")
		return
	}

	input := services.CreateTaskInput{
		EntityType:    models.EntityTypePulse,
		EntityID:      req.PulseID,
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		Status:        req.Status,
		TaskStatusID:  req.TaskStatusID,
		ParentID:      req.ParentID,
		DueDate:       req.DueDate,
		AssigneeIDs:   req.AssigneeIDs,
		DependencyIDs: req.DependencyIDs,
		CreatorID:     userID,
	}
	if req.Source != nil {
		input.Source = &services.SourceInput{Type: req.Source.Type, ID: req.Source.ID}
	}

	task, err := h.taskService.CreateTask(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates an existing task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	taskInterface, exists := c.Get("task")
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	task := taskInterface.(models.Task)

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{UpdatedBy: userID}

	if title, ok := rawReq["title"].(string); ok {
		input.Title = &title
	}
	if description, ok := rawReq["description"].(string); ok {
		input.Description = &description
	}
	if statusStr, ok := rawReq["status"].(string); ok {
		status := models.Status(statusStr)
		input.Status = &status
	}
	if v, ok := rawReq["task_status_id"].(float64); ok {
		id := uint64(v)
		input.TaskStatusID = &id
	}
	if _, ok := rawReq["parent_id"]; ok {
		if rawReq["parent_id"] == nil {
			input.ClearParent = true
		} else if v, ok := rawReq["parent_id"].(float64); ok {
			id := uint64(v)
			input.ParentID = &id
		}
	}
	if _, ok := rawReq["due_date"]; ok {
		if rawReq["due_date"] == nil {
			input.ClearDueDate = true
		} else if dueDateStr, ok := rawReq["due_date"].(string); ok {
			parsedTime, err := time.Parse(time.RFC3339, dueDateStr)
			if err != nil {
				apierrors.BadRequest(c, "Invalid due_date")
				return
			}
			input.DueDate = &parsedTime
		}
	}
	if raw, ok := rawReq["assignee_ids"]; ok {
		ids, err := toUint64Slice(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_ids")
			return
		}
		input.AssigneeIDs = &ids
	}
	if raw, ok := rawReq["dependency_ids"]; ok {
		ids, err := toUint64Slice(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid dependency_ids")
			return
		}
		input.DependencyIDs = &ids
	}

	updated, err := h.taskService.UpdateTask(task.ID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UpdateTaskStatus changes a task's status under the per-task lock
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	taskInterface, exists := c.Get("task")
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	task := taskInterface.(models.Task)

	type UpdateStatusRequest struct {
		Status       *models.Status `json:"status"`
		TaskStatusID *uint64        `json:"task_status_id"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.statusUpdates.UpdateTaskStatus(task.ID, services.StatusUpdateInput{
		Status:       req.Status,
		TaskStatusID: req.TaskStatusID,
		UpdatedBy:    userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	taskInterface, exists := c.Get("task")
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	task := taskInterface.(models.Task)

	// Only creator can delete
	if task.CreatorID != userID {
		apierrors.Forbidden(c, "Only the creator can delete this task")
		return
	}

	if err := h.taskService.DeleteTask(task.ID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// AssignTask assigns users to a task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	taskInterface, exists := c.Get("task")
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	task := taskInterface.(models.Task)

	type AssignUserRequest struct {
		UserIDs []uint64 `json:"user_ids" binding:"required"`
	}

	var req AssignUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if len(req.UserIDs) == 0 {
		apierrors.BadRequest(c, "At least one user ID is required")
		return
	}

	if err := h.taskService.AssignUsers(&task, req.UserIDs); err != nil {
		respondTaskError(c, err)
		return
	}

	updated, err := h.taskService.GetTask(task.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to reload task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Users assigned successfully",
		"assignees": dto.ToTaskDTO(*updated).Assignees,
	})
}

// UnassignTask removes user assignments from a task
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	taskInterface, exists := c.Get("task")
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	task := taskInterface.(models.Task)

	type AssignUserRequest struct {
		UserIDs []uint64 `json:"user_ids" binding:"required"`
	}

	var req AssignUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if len(req.UserIDs) == 0 {
		apierrors.BadRequest(c, "At least one user ID is required")
		return
	}

	if err := h.taskService.UnassignUsers(&task, req.UserIDs); err != nil {
		respondTaskError(c, err)
		return
	}

	updated, err := h.taskService.GetTask(task.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to reload task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Users unassigned successfully",
		"assignees": dto.ToTaskDTO(*updated).Assignees,
	})
}

// ReorderTasks applies a batch of sibling moves within a pulse
func (h *TaskHandler) ReorderTasks(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	type ReorderEntry struct {
		TaskID      uint64  `json:"task_id" binding:"required"`
		NewParentID *uint64 `json:"new_parent_id"`
		ClearParent bool    `json:"clear_parent"`
		Position    *int    `json:"position"`
	}
	type ReorderRequest struct {
		Entries []ReorderEntry `json:"entries" binding:"required"`
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ids := make([]uint64, len(req.Entries))
	entries := make([]services.TaskReorderEntry, len(req.Entries))
	for i, e := range req.Entries {
		ids[i] = e.TaskID
		entries[i] = services.TaskReorderEntry{
			TaskID:      e.TaskID,
			NewParentID: e.NewParentID,
			ClearParent: e.ClearParent,
			Position:    e.Position,
		}
	}

	// All moved tasks must live in this pulse
	var count int64
	database.GetDB().Model(&models.Task{}).
		Where("id IN ? AND entity_type = ? AND entity_id = ?", ids, models.EntityTypePulse, pulse.ID).
		Count(&count)
	if int(count) != len(ids) {
		apierrors.NotFound(c, "One or more tasks not found in this pulse")
		return
	}

	if err := h.ordering.ReorderTasks(entries); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tasks reordered successfully",
	})
}

func toUint64Slice(raw any) ([]uint64, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New("not an array")
	}
	ids := make([]uint64, 0, len(items))
	for _, item := range items {
		v, ok := item.(float64)
		if !ok || v < 0 {
			return nil, errors.New("not an id")
		}
		ids = append(ids, uint64(v))
	}
	return ids, nil
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrParentTaskNotFound),
		errors.Is(err, services.ErrStatusNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrDuplicateTask):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeDuplicateTask, err.Error())
	case errors.Is(err, services.ErrSelfDependency):
		apierrors.UnprocessableWithCode(c, apierrors.ErrCodeSelfDependency, err.Error())
	case errors.Is(err, services.ErrDependencyNotFound):
		apierrors.UnprocessableWithCode(c, apierrors.ErrCodeDependencyNotFound, err.Error())
	case errors.Is(err, services.ErrCrossEntityDependency):
		apierrors.UnprocessableWithCode(c, apierrors.ErrCodeCrossEntityDependency, err.Error())
	case errors.Is(err, services.ErrCircularDependency):
		apierrors.UnprocessableWithCode(c, apierrors.ErrCodeCircularDependency, err.Error())
	case errors.Is(err, services.ErrUnknownAssignee):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeUnknownAssignee, err.Error())
	case errors.Is(err, services.ErrTooManyAssigneesUnderList):
		apierrors.UnprocessableWithCode(c, apierrors.ErrCodeTooManyAssignees, err.Error())
	case errors.Is(err, services.ErrUnsupportedSourceType):
		apierrors.UnprocessableWithCode(c, apierrors.ErrCodeUnsupportedSourceType, err.Error())
	case errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidTaskType),
		errors.Is(err, services.ErrInvalidPosition),
		errors.Is(err, services.ErrStatusNotOwned):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrStatusLockTimeout):
		apierrors.Locked(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
