package repository

import (
	"github.com/pulseworks/pulse-tasks/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// Save persists all fields of an existing task
	Save(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// FindByIDs loads the given tasks; missing ids are simply absent from
	// the result
	FindByIDs(ids []uint64) ([]models.Task, error)

	// FindDuplicate looks up a task with the same (title, type, parent)
	// tuple under the owner
	FindDuplicate(entityType string, entityID uint64, title string, taskType models.TaskType, parentID *uint64) (*models.Task, error)

	// List retrieves tasks of an owner with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// NumberedForOwner returns the task numbers already assigned under the
	// owner, holding a row lock over them for the enclosing transaction
	NumberedForOwner(entityType string, entityID uint64) ([]string, error)

	// MaxSiblingPosition returns the highest position among the children of
	// parentID (root tasks of the owner when parentID is nil), or 0
	MaxSiblingPosition(entityType string, entityID uint64, parentID *uint64) (int, error)

	// ListDependencyIDs returns the ids a task directly depends on
	ListDependencyIDs(taskID uint64) ([]uint64, error)

	// ReplaceDependencies replaces a task's dependency edge set wholesale
	ReplaceDependencies(taskID uint64, dependencyIDs []uint64) error

	// ReplaceAssignees replaces a task's assignee set wholesale
	ReplaceAssignees(taskID uint64, userIDs []uint64) error

	// AssignUsers assigns users to a task, reviving soft-deleted rows
	AssignUsers(taskID uint64, userIDs []uint64) error

	// CountAssignees counts current assignees of a task
	CountAssignees(taskID uint64) (int64, error)

	// Delete removes a task along with its assignee rows and dependency
	// edges in both directions
	Delete(id uint64) error
}

// TaskFilter holds filtering options for listing an owner's tasks
type TaskFilter struct {
	EntityType   string
	EntityID     uint64
	Status       *models.Status
	TaskStatusID *uint64
	AssigneeID   *uint64
	ParentID     *uint64
	RootsOnly    bool
	Search       string
	Page         int
	PageSize     int
}

// StatusRepository defines the interface for custom status data access
type StatusRepository interface {
	// Create creates a new status
	Create(status *models.TaskStatus) error

	// Save persists all fields of an existing status
	Save(status *models.TaskStatus) error

	// FindByID finds a status by ID
	FindByID(id uint64) (*models.TaskStatus, error)

	// ListByPulse lists a pulse's custom statuses ordered by position
	ListByPulse(pulseID uint64) ([]models.TaskStatus, error)

	// ListDefaults lists the built-in default statuses ordered by position
	ListDefaults() ([]models.TaskStatus, error)

	// FindByPulseAndPosition finds the pulse's custom status at a position
	FindByPulseAndPosition(pulseID uint64, position int) (*models.TaskStatus, error)

	// FindLastByPulse finds the pulse's custom status with the highest
	// position
	FindLastByPulse(pulseID uint64) (*models.TaskStatus, error)

	// FindDefaultByPosition finds the built-in default status at a position
	FindDefaultByPosition(position int) (*models.TaskStatus, error)

	// MaxPositionByPulse returns the highest position among the pulse's
	// custom statuses, or 0
	MaxPositionByPulse(pulseID uint64) (int, error)

	// CountByPulse counts the pulse's custom statuses
	CountByPulse(pulseID uint64) (int64, error)

	// UpdatePosition sets a status's position
	UpdatePosition(statusID uint64, position int) error

	// Delete removes a status
	Delete(id uint64) error
}

// PulseRepository defines the interface for pulse data access
type PulseRepository interface {
	// Create creates a new pulse
	Create(pulse *models.Pulse) error

	// FindByID finds a pulse by ID
	FindByID(id uint64) (*models.Pulse, error)

	// FindByInviteCode finds a pulse by invite code
	FindByInviteCode(code string) (*models.Pulse, error)

	// Update updates a pulse
	Update(pulse *models.Pulse) error

	// Delete deletes a pulse and all related data
	Delete(id uint64) error

	// AddMember adds a member to a pulse
	AddMember(member *models.PulseMember) error

	// RemoveMember removes a member from a pulse
	RemoveMember(pulseID, userID uint64) error

	// FindMember finds a specific pulse member
	FindMember(pulseID, userID uint64) (*models.PulseMember, error)

	// ListMembersByUserID lists all pulses a user is a member of
	ListMembersByUserID(userID uint64) ([]models.PulseMember, error)

	// ListMembers lists all members of a pulse
	ListMembers(pulseID uint64) ([]models.PulseMember, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// CreateWithPersonalPulse creates a user, their personal pulse, and the
	// corresponding membership within a single transaction.
	CreateWithPersonalPulse(user *models.User, pulse *models.Pulse, member *models.PulseMember) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByIDs loads the given users; missing ids are absent from the
	// result
	FindByIDs(ids []uint64) ([]models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)
}
