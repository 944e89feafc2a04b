package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatusTypeDefault marks the built-in global status rows (positions
// 1..3, no pulse). Pulse-owned custom statuses carry a nil Type.
const TaskStatusTypeDefault = "default"

// TaskStatus is a column in a pulse's status board. Statuses are ordered by
// Position (1-based, dense within a pulse) and have a lifecycle independent
// of any single task.
type TaskStatus struct {
	ID       uint64  `gorm:"primarykey" json:"id"`
	PulseID  *uint64 `gorm:"index" json:"pulse_id"`
	Label    string  `gorm:"type:varchar(100);not null" json:"label"`
	Color    string  `gorm:"type:varchar(20)" json:"color"`
	Position int     `gorm:"not null" json:"position"`
	Type     *string `gorm:"type:varchar(20)" json:"type"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Pulse *Pulse `gorm:"foreignKey:PulseID" json:"pulse,omitempty"`
}

// IsDefault returns true for the built-in status rows shared by all pulses
// in default mode.
func (s *TaskStatus) IsDefault() bool {
	return s.Type != nil && *s.Type == TaskStatusTypeDefault
}

// IsCustom returns true for pulse-owned statuses.
func (s *TaskStatus) IsCustom() bool {
	return s.PulseID != nil && s.Type == nil
}
