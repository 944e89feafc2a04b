package models

import (
	"time"

	"gorm.io/gorm"
)

// EntityTypePulse is the type tag a pulse contributes to the polymorphic
// (entity_type, entity_id) owner pair on tasks.
const EntityTypePulse = "PULSE"

// StatusOption selects which status representation is authoritative for a
// pulse's tasks.
type StatusOption string

const (
	// StatusOptionDefault: the enum status is authoritative; tasks map onto
	// the built-in three-column status set.
	StatusOptionDefault StatusOption = "default"
	// StatusOptionCustom: the pulse's own status list is authoritative and
	// the enum is kept as a derived mirror.
	StatusOptionCustom StatusOption = "custom"
)

// Pulse is the workspace that owns tasks and custom statuses.
type Pulse struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	InviteCode   string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	StatusOption StatusOption   `gorm:"type:varchar(20);not null;default:'default'" json:"status_option"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Members      []PulseMember `gorm:"foreignKey:PulseID" json:"members,omitempty"`
	TaskStatuses []TaskStatus  `gorm:"foreignKey:PulseID" json:"task_statuses,omitempty"`
	Tasks        []Task        `gorm:"polymorphic:Entity;polymorphicValue:PULSE" json:"tasks,omitempty"`
}

// TypeTag implements the owning-entity capability consumed by the taskable
// registry.
func (p *Pulse) TypeTag() string { return EntityTypePulse }

// Key returns the entity id half of the polymorphic owner pair.
func (p *Pulse) Key() uint64 { return p.ID }

// DisplayName feeds the task-number entity code derivation.
func (p *Pulse) DisplayName() string { return p.Name }

// UsesCustomStatuses reports whether the pulse's custom status list is the
// authoritative status representation.
func (p *Pulse) UsesCustomStatuses() bool { return p.StatusOption == StatusOptionCustom }
