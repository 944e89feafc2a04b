package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pulseworks/pulse-tasks/internal/dto"
	apierrors "github.com/pulseworks/pulse-tasks/internal/errors"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/services"
)

// StatusHandler coordinates custom status HTTP handlers.
type StatusHandler struct {
	statusService *services.StatusService
	ordering      *services.OrderingService
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(statusService *services.StatusService, ordering *services.OrderingService) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		ordering:      ordering,
	}
}

// ListStatuses returns the status set in effect for the pulse
func (h *StatusHandler) ListStatuses(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	statuses, err := h.statusService.ListStatuses(&pulse)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch statuses")
		return
	}

	items := make([]dto.TaskStatusDTO, len(statuses))
	for i, st := range statuses {
		items[i] = dto.ToTaskStatusDTO(st)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses": items,
	})
}

// CreateStatus appends a custom status to the pulse's list
func (h *StatusHandler) CreateStatus(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	type CreateStatusRequest struct {
		Label string `json:"label" binding:"required"`
		Color string `json:"color"`
	}

	var req CreateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	status, err := h.statusService.CreateStatus(services.CreateStatusInput{
		PulseID: pulse.ID,
		Label:   req.Label,
		Color:   req.Color,
	})
	if err != nil {
		respondStatusError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskStatusDTO(*status))
}

// UpdateStatus changes a custom status's label or color
func (h *StatusHandler) UpdateStatus(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	statusID, ok := h.pulseStatusID(c, pulse.ID)
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Label *string `json:"label"`
		Color *string `json:"color"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	status, err := h.statusService.UpdateStatus(statusID, services.UpdateStatusInput{
		Label: req.Label,
		Color: req.Color,
	})
	if err != nil {
		respondStatusError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskStatusDTO(*status))
}

// DeleteStatus removes a custom status
func (h *StatusHandler) DeleteStatus(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	statusID, ok := h.pulseStatusID(c, pulse.ID)
	if !ok {
		return
	}

	if err := h.statusService.DeleteStatus(statusID); err != nil {
		respondStatusError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Status deleted successfully",
	})
}

// ReorderStatuses rewrites the pulse's custom status order
func (h *StatusHandler) ReorderStatuses(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	type ReorderRequest struct {
		StatusIDs []uint64 `json:"status_ids" binding:"required"`
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.ordering.ReorderStatuses(pulse.ID, req.StatusIDs); err != nil {
		respondStatusError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Statuses reordered successfully",
	})
}

// pulseStatusID parses the status id parameter and verifies the status
// belongs to the pulse.
func (h *StatusHandler) pulseStatusID(c *gin.Context, pulseID uint64) (uint64, bool) {
	statusID, err := strconv.ParseUint(c.Param("status_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid status ID")
		return 0, false
	}

	status, err := h.statusService.GetStatus(statusID)
	if err != nil {
		respondStatusError(c, err)
		return 0, false
	}
	if status.PulseID == nil || *status.PulseID != pulseID {
		apierrors.NotFound(c, "Status not found")
		return 0, false
	}
	return statusID, true
}

func respondStatusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrStatusNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrStatusImmutable),
		errors.Is(err, services.ErrStatusListMismatch):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrStatusMinimumRequired):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeConflict, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
