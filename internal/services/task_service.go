package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/pulseworks/pulse-tasks/internal/taskable"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound              = errors.New("task not found")
	ErrParentTaskNotFound        = errors.New("parent task not found")
	ErrDuplicateTask             = errors.New("a task with the same title, type and parent already exists")
	ErrInvalidTaskStatus         = errors.New("invalid task status")
	ErrInvalidTaskType           = errors.New("invalid task type")
	ErrStatusNotFound            = errors.New("task status not found")
	ErrStatusNotOwned            = errors.New("task status belongs to a different entity")
	ErrUnknownAssignee           = errors.New("one or more assignees do not exist")
	ErrTooManyAssigneesUnderList = errors.New("tasks under a list can have at most one assignee")
	ErrUnsupportedSourceType     = errors.New("unsupported task source type")
)

// TaskService handles task lifecycle operations. Every mutation runs in a
// single transaction covering the task row, its status reconciliation,
// assignees and dependency edges, so partial writes are never visible.
type TaskService struct {
	db        *gorm.DB
	registry  *taskable.Registry
	allocator NumberAllocator
	validator DependencyValidator
	syncer    StatusSyncer
}

// NewTaskService creates a new task service
func NewTaskService(db *gorm.DB, registry *taskable.Registry) *TaskService {
	return &TaskService{
		db:       db,
		registry: registry,
	}
}

// SourceInput references the external record a task was generated from.
type SourceInput struct {
	Type string
	ID   uint64
}

// CreateTaskInput contains the data needed to create a task
type CreateTaskInput struct {
	EntityType    string
	EntityID      uint64
	Title         string
	Description   string
	Type          models.TaskType
	Status        *models.Status
	TaskStatusID  *uint64
	ParentID      *uint64
	DueDate       *time.Time
	Source        *SourceInput
	AssigneeIDs   []uint64
	DependencyIDs []uint64
	CreatorID     uint64
}

// UpdateTaskInput contains the data for updating a task. Nil fields are
// left unchanged; a non-nil empty slice clears the corresponding set.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.Status
	TaskStatusID  *uint64
	ParentID      *uint64
	ClearParent   bool
	DueDate       *time.Time
	ClearDueDate  bool
	AssigneeIDs   *[]uint64
	DependencyIDs *[]uint64
	UpdatedBy     uint64
}

// CreateTask creates a task under its owning entity, allocating the next
// task number and reconciling both status representations before the
// transaction commits.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Type == "" {
		input.Type = models.TaskTypeTask
	}
	if input.Type != models.TaskTypeTask && input.Type != models.TaskTypeList {
		return nil, ErrInvalidTaskType
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}
	if input.Source != nil && input.Source.Type != models.TaskSourceMeeting {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSourceType, input.Source.Type)
	}

	owner, err := s.registry.Resolve(s.db, input.EntityType, input.EntityID)
	if err != nil {
		return nil, err
	}

	var created *models.Task
	err = s.db.Transaction(func(tx *gorm.DB) error {
		taskRepo := repository.NewTaskRepository(tx)

		existing, err := taskRepo.FindDuplicate(owner.TypeTag(), owner.Key(), input.Title, input.Type, input.ParentID)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate task: %w", err)
		}
		if existing != nil {
			return ErrDuplicateTask
		}

		var parent *models.Task
		if input.ParentID != nil {
			parent, err = taskRepo.FindByID(*input.ParentID)
			if err != nil {
				return fmt.Errorf("failed to load parent task: %w", err)
			}
			if parent == nil || parent.EntityType != owner.TypeTag() || parent.EntityID != owner.Key() {
				return ErrParentTaskNotFound
			}
		}

		if input.TaskStatusID != nil {
			if err := s.checkStatusOwnership(tx, owner, *input.TaskStatusID); err != nil {
				return err
			}
		}

		number, err := s.allocator.Allocate(tx, owner)
		if err != nil {
			return err
		}

		maxPos, err := taskRepo.MaxSiblingPosition(owner.TypeTag(), owner.Key(), input.ParentID)
		if err != nil {
			return fmt.Errorf("failed to find sibling positions: %w", err)
		}

		task := &models.Task{
			TaskNumber:   number,
			Title:        input.Title,
			Description:  input.Description,
			Type:         input.Type,
			Status:       input.Status,
			TaskStatusID: input.TaskStatusID,
			EntityType:   owner.TypeTag(),
			EntityID:     owner.Key(),
			ParentID:     input.ParentID,
			Position:     maxPos + 1,
			DueDate:      input.DueDate,
			CreatorID:    input.CreatorID,
		}
		if input.Source != nil {
			task.SourceType = &input.Source.Type
			task.SourceID = &input.Source.ID
		}
		if task.Status == nil && task.TaskStatusID == nil {
			todo := models.StatusTodo
			task.Status = &todo
		}

		if err := taskRepo.Create(task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		// The supplied representation is authoritative; when both are
		// given the status row wins.
		if task.TaskStatusID != nil {
			err = s.syncer.SyncCustomToEnum(tx, task)
		} else {
			err = s.syncer.SyncEnumToCustom(tx, owner, task)
		}
		if err != nil {
			return err
		}

		if len(input.AssigneeIDs) > 0 {
			if err := s.checkAssignees(tx, parent, input.AssigneeIDs); err != nil {
				return err
			}
			if err := taskRepo.AssignUsers(task.ID, input.AssigneeIDs); err != nil {
				return fmt.Errorf("failed to assign users: %w", err)
			}
		}

		if len(input.DependencyIDs) > 0 {
			if err := s.validator.ValidateAndSync(tx, task, input.DependencyIDs); err != nil {
				return err
			}
		}

		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTask(created.ID)
}

// UpdateTask applies a partial update. Status reconciliation follows the
// representation the caller touched: a status row change drives the enum,
// an enum change drives the row, and when both change the row wins.
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}

	task, err := repository.NewTaskRepository(s.db).FindByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	owner, err := s.registry.Resolve(s.db, task.EntityType, task.EntityID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		taskRepo := repository.NewTaskRepository(tx)

		if input.Title != nil && *input.Title != task.Title {
			existing, err := taskRepo.FindDuplicate(task.EntityType, task.EntityID, *input.Title, task.Type, task.ParentID)
			if err != nil {
				return fmt.Errorf("failed to check for duplicate task: %w", err)
			}
			if existing != nil && existing.ID != task.ID {
				return ErrDuplicateTask
			}
			task.Title = *input.Title
		}
		if input.Description != nil {
			task.Description = *input.Description
		}
		if input.ClearParent {
			task.ParentID = nil
		} else if input.ParentID != nil {
			parent, err := taskRepo.FindByID(*input.ParentID)
			if err != nil {
				return fmt.Errorf("failed to load parent task: %w", err)
			}
			if parent == nil || !parent.SameOwner(task) {
				return ErrParentTaskNotFound
			}
			task.ParentID = input.ParentID
		}
		if input.ClearDueDate {
			task.DueDate = nil
		} else if input.DueDate != nil {
			task.DueDate = input.DueDate
		}
		if input.TaskStatusID != nil {
			if err := s.checkStatusOwnership(tx, owner, *input.TaskStatusID); err != nil {
				return err
			}
			task.TaskStatusID = input.TaskStatusID
		}
		if input.Status != nil {
			task.Status = input.Status
		}
		task.UpdatedBy = &input.UpdatedBy

		if err := taskRepo.Save(task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		if input.TaskStatusID != nil {
			if err := s.syncer.SyncCustomToEnum(tx, task); err != nil {
				return err
			}
		} else if input.Status != nil {
			if err := s.syncer.SyncEnumToCustom(tx, owner, task); err != nil {
				return err
			}
		}

		if input.AssigneeIDs != nil {
			if len(*input.AssigneeIDs) > 0 {
				var parent *models.Task
				if task.ParentID != nil {
					parent, err = taskRepo.FindByID(*task.ParentID)
					if err != nil {
						return fmt.Errorf("failed to load parent task: %w", err)
					}
				}
				if err := s.checkAssignees(tx, parent, *input.AssigneeIDs); err != nil {
					return err
				}
			}
			if err := taskRepo.ReplaceAssignees(task.ID, *input.AssigneeIDs); err != nil {
				return fmt.Errorf("failed to replace assignees: %w", err)
			}
		}

		if input.DependencyIDs != nil {
			if err := s.validator.ValidateAndSync(tx, task, *input.DependencyIDs); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetTask(taskID)
}

// GetTask retrieves a task with its relations loaded.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := repository.NewTaskRepository(s.db).FindByID(taskID,
		"Creator", "TaskStatus", "Assignees", "Assignees.User", "Children")
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ListTasks retrieves tasks matching the filter along with the unpaged
// total.
func (s *TaskService) ListTasks(filter repository.TaskFilter) ([]models.Task, int64, error) {
	return repository.NewTaskRepository(s.db).List(filter)
}

// DeleteTask removes a task together with its assignee rows and every
// dependency edge touching it. Other tasks that depended on it simply
// lose the edge.
func (s *TaskService) DeleteTask(taskID uint64) error {
	task, err := repository.NewTaskRepository(s.db).FindByID(taskID)
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return ErrTaskNotFound
	}
	return repository.NewTaskRepository(s.db).Delete(taskID)
}

// Dependencies returns the ids the task directly depends on.
func (s *TaskService) Dependencies(taskID uint64) ([]uint64, error) {
	return repository.NewTaskRepository(s.db).ListDependencyIDs(taskID)
}

// AssignUsers adds users to a task's assignee set.
func (s *TaskService) AssignUsers(task *models.Task, userIDs []uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		taskRepo := repository.NewTaskRepository(tx)

		var parent *models.Task
		if task.ParentID != nil {
			var err error
			parent, err = taskRepo.FindByID(*task.ParentID)
			if err != nil {
				return fmt.Errorf("failed to load parent task: %w", err)
			}
		}
		if err := s.checkAssignees(tx, parent, userIDs); err != nil {
			return err
		}
		if parent != nil && parent.Type == models.TaskTypeList {
			count, err := taskRepo.CountAssignees(task.ID)
			if err != nil {
				return fmt.Errorf("failed to count assignees: %w", err)
			}
			if count+int64(len(userIDs)) > 1 {
				return ErrTooManyAssigneesUnderList
			}
		}

		if err := taskRepo.AssignUsers(task.ID, userIDs); err != nil {
			return fmt.Errorf("failed to assign users: %w", err)
		}
		return nil
	})
}

// UnassignUsers removes users from a task's assignee set.
func (s *TaskService) UnassignUsers(task *models.Task, userIDs []uint64) error {
	if err := s.db.Where("task_id = ? AND user_id IN ?", task.ID, userIDs).
		Delete(&models.Assignee{}).Error; err != nil {
		return fmt.Errorf("failed to unassign users: %w", err)
	}
	return nil
}

// checkStatusOwnership verifies a status row exists and belongs to the
// owner's status set.
func (s *TaskService) checkStatusOwnership(tx *gorm.DB, owner taskable.Entity, statusID uint64) error {
	row, err := repository.NewStatusRepository(tx).FindByID(statusID)
	if err != nil {
		return fmt.Errorf("failed to load status row: %w", err)
	}
	if row == nil {
		return ErrStatusNotFound
	}
	if row.IsCustom() && (!owner.UsesCustomStatuses() || *row.PulseID != owner.Key()) {
		return ErrStatusNotOwned
	}
	if row.IsDefault() && owner.UsesCustomStatuses() {
		return ErrStatusNotOwned
	}
	return nil
}

// checkAssignees verifies every assignee exists and enforces the single
// assignee rule for tasks nested under a list.
func (s *TaskService) checkAssignees(tx *gorm.DB, parent *models.Task, userIDs []uint64) error {
	if parent != nil && parent.Type == models.TaskTypeList && len(userIDs) > 1 {
		return ErrTooManyAssigneesUnderList
	}

	users, err := repository.NewUserRepository(tx).FindByIDs(userIDs)
	if err != nil {
		return fmt.Errorf("failed to load assignees: %w", err)
	}
	if len(users) != len(uniqueUint64(userIDs)) {
		return ErrUnknownAssignee
	}
	return nil
}
