package database

import (
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"gorm.io/gorm"
)

// defaultStatusSeed is the built-in three-column status set shared by every
// pulse in default mode. Positions map onto the enum: 1=TODO, 2=INPROGRESS,
// 3=COMPLETED.
var defaultStatusSeed = []models.TaskStatus{
	{Label: "To do", Color: "#94a3b8", Position: 1},
	{Label: "In progress", Color: "#3b82f6", Position: 2},
	{Label: "Completed", Color: "#22c55e", Position: 3},
}

// SeedDefaultStatuses inserts the built-in status rows if they are missing.
// Safe to run on every startup.
func SeedDefaultStatuses(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.TaskStatus{}).
		Where("pulse_id IS NULL AND type = ?", models.TaskStatusTypeDefault).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count default statuses: %w", err)
	}

	if count >= int64(len(defaultStatusSeed)) {
		return nil
	}

	kind := models.TaskStatusTypeDefault
	for _, seed := range defaultStatusSeed {
		status := seed
		status.Type = &kind

		var existing models.TaskStatus
		err := db.Where("pulse_id IS NULL AND type = ? AND position = ?", kind, status.Position).
			First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to check default status at position %d: %w", status.Position, err)
		}

		if err := db.Create(&status).Error; err != nil {
			return fmt.Errorf("failed to seed default status %q: %w", status.Label, err)
		}
	}

	return nil
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for filtering and sorting
		{"tasks", "idx_tasks_parent_id", "parent_id"},
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_task_status_id", "task_status_id"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"tasks", "idx_tasks_created_at", "created_at"},

		// Dependency edges are traversed from both ends
		{"task_dependencies", "idx_task_dependencies_task_id", "task_id"},
		{"task_dependencies", "idx_task_dependencies_depends_on", "depends_on_task_id"},

		// Pulse members indexes
		{"pulse_members", "idx_pulse_members_pulse_id", "pulse_id"},
		{"pulse_members", "idx_pulse_members_user_id", "user_id"},

		// Assignee indexes
		{"assignees", "idx_assignees_task_id", "task_id"},
		{"assignees", "idx_assignees_user_id", "user_id"},

		// Status board ordering
		{"task_statuses", "idx_task_statuses_pulse_position", "pulse_id, position"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
