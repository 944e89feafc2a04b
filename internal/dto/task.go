package dto

import (
	"time"

	"github.com/pulseworks/pulse-tasks/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// PulseDTO represents a pulse in API responses
type PulseDTO struct {
	ID           uint64              `json:"id"`
	Name         string              `json:"name"`
	StatusOption models.StatusOption `json:"status_option"`
	InviteCode   string              `json:"invite_code,omitempty"`
}

// TaskStatusDTO represents a status row in API responses
type TaskStatusDTO struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Position int    `json:"position"`
	Default  bool   `json:"default"`
}

// AssigneeDTO represents a task assignee in API responses
type AssigneeDTO struct {
	User UserDTO `json:"user"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64          `json:"id"`
	TaskNumber   string          `json:"task_number"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         models.TaskType `json:"type"`
	Status       *models.Status  `json:"status"`
	TaskStatusID *uint64         `json:"task_status_id"`
	EntityType   string          `json:"entity_type"`
	EntityID     uint64          `json:"entity_id"`
	ParentID     *uint64         `json:"parent_id"`
	Position     int             `json:"position"`
	DueDate      *time.Time      `json:"due_date"`
	SourceType   *string         `json:"source_type,omitempty"`
	SourceID     *uint64         `json:"source_id,omitempty"`
	CreatorID    uint64          `json:"creator_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Creator      *UserDTO        `json:"creator,omitempty"`
	TaskStatus   *TaskStatusDTO  `json:"task_status,omitempty"`
	Assignees    []AssigneeDTO   `json:"assignees,omitempty"`
	Dependencies []uint64        `json:"dependencies,omitempty"`
	Children     []TaskDTO       `json:"children,omitempty"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID           uint64          `json:"id"`
	TaskNumber   string          `json:"task_number"`
	Title        string          `json:"title"`
	Type         models.TaskType `json:"type"`
	Status       *models.Status  `json:"status"`
	TaskStatusID *uint64         `json:"task_status_id"`
	ParentID     *uint64         `json:"parent_id"`
	Position     int             `json:"position"`
	DueDate      *time.Time      `json:"due_date"`
	CreatorID    uint64          `json:"creator_id"`
	Creator      *UserDTO        `json:"creator,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskListItemDTO `json:"tasks"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int64             `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
	}
}

// ToPulseDTO converts a Pulse model to PulseDTO
func ToPulseDTO(pulse models.Pulse, includeInviteCode bool) PulseDTO {
	dto := PulseDTO{
		ID:           pulse.ID,
		Name:         pulse.Name,
		StatusOption: pulse.StatusOption,
	}
	if includeInviteCode {
		dto.InviteCode = pulse.InviteCode
	}
	return dto
}

// ToTaskStatusDTO converts a TaskStatus model to TaskStatusDTO
func ToTaskStatusDTO(status models.TaskStatus) TaskStatusDTO {
	return TaskStatusDTO{
		ID:       status.ID,
		Label:    status.Label,
		Color:    status.Color,
		Position: status.Position,
		Default:  status.IsDefault(),
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID,
		TaskNumber:   task.TaskNumber,
		Title:        task.Title,
		Description:  task.Description,
		Type:         task.Type,
		Status:       task.Status,
		TaskStatusID: task.TaskStatusID,
		EntityType:   task.EntityType,
		EntityID:     task.EntityID,
		ParentID:     task.ParentID,
		Position:     task.Position,
		DueDate:      task.DueDate,
		SourceType:   task.SourceType,
		SourceID:     task.SourceID,
		CreatorID:    task.CreatorID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	// Include status row if preloaded
	if task.TaskStatus != nil {
		status := ToTaskStatusDTO(*task.TaskStatus)
		dto.TaskStatus = &status
	}

	// Include assignees if preloaded
	if len(task.Assignees) > 0 {
		dto.Assignees = make([]AssigneeDTO, len(task.Assignees))
		for i, assignee := range task.Assignees {
			dto.Assignees[i] = AssigneeDTO{
				User: ToUserDTO(assignee.User),
			}
		}
	}

	// Include children if preloaded
	if len(task.Children) > 0 {
		dto.Children = make([]TaskDTO, len(task.Children))
		for i, child := range task.Children {
			dto.Children[i] = ToTaskDTO(child)
		}
	}

	return dto
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO
func ToTaskListItemDTO(task models.Task) TaskListItemDTO {
	dto := TaskListItemDTO{
		ID:           task.ID,
		TaskNumber:   task.TaskNumber,
		Title:        task.Title,
		Type:         task.Type,
		Status:       task.Status,
		TaskStatusID: task.TaskStatusID,
		ParentID:     task.ParentID,
		Position:     task.Position,
		DueDate:      task.DueDate,
		CreatorID:    task.CreatorID,
		CreatedAt:    task.CreatedAt,
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskListItemDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskListItemDTO(task)
	}

	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
