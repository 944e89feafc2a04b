package models

import "time"

type PulseRole string

const (
	RoleOwner  PulseRole = "owner"
	RoleMember PulseRole = "member"
)

type PulseMember struct {
	PulseID  uint64    `gorm:"primarykey" json:"pulse_id"`
	UserID   uint64    `gorm:"primarykey" json:"user_id"`
	Role     PulseRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Pulse Pulse `gorm:"foreignKey:PulseID" json:"pulse,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
