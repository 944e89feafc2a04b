package services

import (
	"errors"
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/constants"
	"github.com/pulseworks/pulse-tasks/internal/lock"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"gorm.io/gorm"
)

var ErrStatusLockTimeout = errors.New("task is being updated by another request, try again")

// StatusUpdateError wraps a failure inside a status update transaction so
// callers can distinguish it from lock contention.
type StatusUpdateError struct {
	Err error
}

func (e *StatusUpdateError) Error() string {
	return fmt.Sprintf("status update failed: %v", e.Err)
}

func (e *StatusUpdateError) Unwrap() error {
	return e.Err
}

// StatusUpdateInput names the representation the caller is changing.
// Exactly one of Status and TaskStatusID should be set; when both are,
// the status row wins.
type StatusUpdateInput struct {
	Status       *models.Status
	TaskStatusID *uint64
	UpdatedBy    uint64
}

// StatusUpdateService serializes status changes per task. Concurrent
// updates to the same task queue behind a short-lived lock; updates to
// different tasks proceed in parallel.
type StatusUpdateService struct {
	db     *gorm.DB
	tasks  *TaskService
	locker lock.Locker
	syncer StatusSyncer
}

// NewStatusUpdateService creates a new status update service
func NewStatusUpdateService(db *gorm.DB, tasks *TaskService, locker lock.Locker) *StatusUpdateService {
	return &StatusUpdateService{
		db:     db,
		tasks:  tasks,
		locker: locker,
	}
}

// UpdateTaskStatus changes a task's status under a per-task lock and
// reconciles the other representation inside the same transaction.
func (s *StatusUpdateService) UpdateTaskStatus(taskID uint64, input StatusUpdateInput) (*models.Task, error) {
	if input.Status == nil && input.TaskStatusID == nil {
		return nil, ErrInvalidTaskStatus
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}

	guard, err := s.locker.Acquire(
		fmt.Sprintf("task-status:%d", taskID),
		constants.StatusLockMaxWait,
		constants.StatusLockMaxHold,
	)
	if err != nil {
		if errors.Is(err, lock.ErrAcquireTimeout) {
			return nil, ErrStatusLockTimeout
		}
		return nil, err
	}
	defer guard.Release()

	task, err := repository.NewTaskRepository(s.db).FindByID(taskID)
	if err != nil {
		return nil, &StatusUpdateError{Err: err}
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	owner, err := s.tasks.registry.Resolve(s.db, task.EntityType, task.EntityID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		taskRepo := repository.NewTaskRepository(tx)

		if input.TaskStatusID != nil {
			if err := s.tasks.checkStatusOwnership(tx, owner, *input.TaskStatusID); err != nil {
				return err
			}
			task.TaskStatusID = input.TaskStatusID
		}
		if input.Status != nil {
			task.Status = input.Status
		}
		task.UpdatedBy = &input.UpdatedBy

		if err := taskRepo.Save(task); err != nil {
			return &StatusUpdateError{Err: err}
		}

		if input.TaskStatusID != nil {
			return s.syncer.SyncCustomToEnum(tx, task)
		}
		return s.syncer.SyncEnumToCustom(tx, owner, task)
	})
	if err != nil {
		return nil, err
	}

	return s.tasks.GetTask(taskID)
}
