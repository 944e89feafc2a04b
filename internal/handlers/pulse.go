package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pulseworks/pulse-tasks/internal/dto"
	apierrors "github.com/pulseworks/pulse-tasks/internal/errors"
	"github.com/pulseworks/pulse-tasks/internal/middleware"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/services"
)

// PulseHandler coordinates pulse-related HTTP handlers.
type PulseHandler struct {
	pulseService *services.PulseService
}

// NewPulseHandler creates a new PulseHandler.
func NewPulseHandler(pulseService *services.PulseService) *PulseHandler {
	return &PulseHandler{
		pulseService: pulseService,
	}
}

// CreatePulse creates a new pulse
func (h *PulseHandler) CreatePulse(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreatePulseRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req CreatePulseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	pulse, err := h.pulseService.CreatePulse(services.CreatePulseInput{
		Name:    req.Name,
		OwnerID: userID,
	})
	if err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPulseDTO(*pulse, true))
}

// ListPulses returns all pulses the user is a member of
func (h *PulseHandler) ListPulses(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.pulseService.ListPulsesForUser(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch pulses")
		return
	}

	pulses := make([]dto.PulseWithRoleDTO, len(memberships))
	for i, m := range memberships {
		pulses[i] = dto.ToPulseWithRoleDTO(m)
	}

	c.JSON(http.StatusOK, gin.H{
		"pulses": pulses,
	})
}

// GetPulse returns pulse details
func (h *PulseHandler) GetPulse(c *gin.Context) {
	// Pulse is already loaded by RequirePulseAccess middleware
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	memberInterface, _ := c.Get("pulse_member")
	member := memberInterface.(models.PulseMember)

	_, members, err := h.pulseService.GetPulseWithMembers(pulse.ID)
	if err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPulseDetailDTO(pulse, members, member.Role))
}

// UpdatePulse updates pulse name
func (h *PulseHandler) UpdatePulse(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	type UpdatePulseRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req UpdatePulseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.pulseService.UpdatePulseName(pulse.ID, req.Name)
	if err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPulseDTO(*updated, false))
}

// UpdateStatusOption switches the pulse between default and custom statuses
func (h *PulseHandler) UpdateStatusOption(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	type UpdateStatusOptionRequest struct {
		StatusOption models.StatusOption `json:"status_option" binding:"required"`
	}

	var req UpdateStatusOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.pulseService.UpdateStatusOption(pulse.ID, req.StatusOption)
	if err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPulseDTO(*updated, false))
}

// DeletePulse deletes a pulse
func (h *PulseHandler) DeletePulse(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	if err := h.pulseService.DeletePulse(pulse.ID); err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Pulse deleted successfully",
	})
}

// JoinPulse allows a user to join via invite code
func (h *PulseHandler) JoinPulse(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type JoinRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	pulse, err := h.pulseService.JoinPulseByInvite(userID, req.InviteCode)
	if err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully joined pulse",
		"pulse":   dto.ToPulseDTO(*pulse, false),
	})
}

// RegenerateInviteCode generates a new invite code for the pulse
func (h *PulseHandler) RegenerateInviteCode(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	updated, err := h.pulseService.RegenerateInviteCode(pulse.ID)
	if err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPulseDTO(*updated, true))
}

// RemoveMember removes a member from the pulse
func (h *PulseHandler) RemoveMember(c *gin.Context) {
	pulseInterface, _ := c.Get("pulse")
	pulse := pulseInterface.(models.Pulse)

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	currentUserID, _ := middleware.GetUserID(c)
	if err := h.pulseService.RemoveMember(pulse.ID, currentUserID, targetID); err != nil {
		respondPulseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

func respondPulseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPulseName),
		errors.Is(err, services.ErrInvalidStatusOption),
		errors.Is(err, services.ErrCannotRemoveYourself):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrPulseNotFound),
		errors.Is(err, services.ErrPulseMemberNotFound),
		errors.Is(err, services.ErrInvalidInviteCode):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyPulseMember):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
