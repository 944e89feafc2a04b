package dto

import (
	"time"

	"github.com/pulseworks/pulse-tasks/internal/models"
)

// PulseWithRoleDTO represents a pulse with the user's role
type PulseWithRoleDTO struct {
	PulseDTO
	Role models.PulseRole `json:"role"`
}

// PulseMemberDTO represents a member in a pulse
type PulseMemberDTO struct {
	User     UserDTO          `json:"user"`
	Role     models.PulseRole `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

// PulseDetailDTO represents detailed pulse information
type PulseDetailDTO struct {
	PulseDTO
	Members  []PulseMemberDTO `json:"members"`
	YourRole models.PulseRole `json:"your_role"`
}

// ToPulseWithRoleDTO converts a pulse member to DTO with role
func ToPulseWithRoleDTO(member models.PulseMember) PulseWithRoleDTO {
	return PulseWithRoleDTO{
		PulseDTO: ToPulseDTO(member.Pulse, false),
		Role:     member.Role,
	}
}

// ToPulseMemberDTO converts a member to DTO
func ToPulseMemberDTO(member models.PulseMember) PulseMemberDTO {
	return PulseMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToPulseDetailDTO converts a pulse with members to detailed DTO
func ToPulseDetailDTO(pulse models.Pulse, members []models.PulseMember, yourRole models.PulseRole) PulseDetailDTO {
	memberDTOs := make([]PulseMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToPulseMemberDTO(member)
	}

	return PulseDetailDTO{
		PulseDTO: ToPulseDTO(pulse, true),
		Members:  memberDTOs,
		YourRole: yourRole,
	}
}
