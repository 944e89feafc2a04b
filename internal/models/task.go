package models

import (
	"time"

	"gorm.io/gorm"
)

// Status is the fixed task status enum. It coexists with the per-pulse
// customizable status list (TaskStatus); TaskStatusID and Status are kept
// mutually consistent by the status sync service.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "INPROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusOverdue    Status = "OVERDUE"
)

// IsValid returns true if the status is a known enum value.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	default:
		return false
	}
}

type TaskType string

const (
	TaskTypeTask TaskType = "TASK"
	// TaskTypeList groups child tasks via ParentID.
	TaskTypeList TaskType = "LIST"
)

// Task source types
const (
	TaskSourceMeeting = "MEETING"
)

type Task struct {
	ID uint64 `gorm:"primarykey" json:"id"`

	// TaskNumber is unique within the owning entity and immutable once
	// assigned (PRO1-T001, PRO1-T002, ...).
	TaskNumber string `gorm:"type:varchar(40);uniqueIndex:idx_tasks_entity_number" json:"task_number"`

	Title       string   `gorm:"not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Type        TaskType `gorm:"type:varchar(10);not null;default:'TASK'" json:"type"`

	// Status and TaskStatusID are the two status representations. Which one
	// is authoritative depends on the owning entity's status mode.
	Status       *Status `gorm:"type:varchar(20)" json:"status"`
	TaskStatusID *uint64 `json:"task_status_id"`

	// Polymorphic owner: every task belongs to exactly one owning entity.
	EntityType string `gorm:"type:varchar(30);not null;uniqueIndex:idx_tasks_entity_number;index:idx_tasks_entity" json:"entity_type"`
	EntityID   uint64 `gorm:"not null;uniqueIndex:idx_tasks_entity_number;index:idx_tasks_entity" json:"entity_id"`

	ParentID *uint64 `json:"parent_id"`
	// Position ranks the task among siblings sharing the same parent. Gaps
	// are tolerated; reordering never renumbers unrelated siblings.
	Position int `gorm:"not null;default:0" json:"position"`

	DueDate    *time.Time `json:"due_date"`
	SourceType *string    `gorm:"type:varchar(30)" json:"source_type"`
	SourceID   *uint64    `json:"source_id"`

	CreatorID uint64  `gorm:"not null" json:"creator_id"`
	UpdatedBy *uint64 `json:"updated_by"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator    User        `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Parent     *Task       `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children   []Task      `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	TaskStatus *TaskStatus `gorm:"foreignKey:TaskStatusID" json:"task_status,omitempty"`
	Assignees  []Assignee  `gorm:"foreignKey:TaskID" json:"assignees,omitempty"`
}

// SameOwner returns true if both tasks belong to the same owning entity.
func (t *Task) SameOwner(other *Task) bool {
	return t.EntityType == other.EntityType && t.EntityID == other.EntityID
}
