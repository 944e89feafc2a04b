package models

import "time"

// TaskDependency is one edge in the directed dependency graph: TaskID
// depends on DependsOnTaskID. The edge set is kept acyclic and free of
// self-edges by the dependency validator.
type TaskDependency struct {
	TaskID          uint64    `gorm:"primarykey" json:"task_id"`
	DependsOnTaskID uint64    `gorm:"primarykey" json:"depends_on_task_id"`
	CreatedAt       time.Time `json:"created_at"`

	// Relations
	Task      Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	DependsOn Task `gorm:"foreignKey:DependsOnTaskID" json:"depends_on,omitempty"`
}
