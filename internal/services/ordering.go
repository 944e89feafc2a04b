package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/queue"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrStatusListMismatch = errors.New("reorder list must name every custom status exactly once")
	ErrInvalidPosition    = errors.New("position must be positive")
)

// OrderingService manages the manual ranking of tasks among their
// siblings and of custom statuses within a pulse. Task positions tolerate
// gaps; status positions are kept dense because the status duality mapping
// reads them.
type OrderingService struct {
	db         *gorm.DB
	dispatcher queue.Dispatcher
}

// NewOrderingService creates a new ordering service
func NewOrderingService(db *gorm.DB, dispatcher queue.Dispatcher) *OrderingService {
	return &OrderingService{
		db:         db,
		dispatcher: dispatcher,
	}
}

// TaskReorderEntry moves one task to a new rank, optionally under a new
// parent. A nil Position appends after the current last sibling.
type TaskReorderEntry struct {
	TaskID      uint64
	NewParentID *uint64
	ClearParent bool
	Position    *int
}

// ReorderTasks applies a batch of sibling moves in one transaction.
// Positions are written as given; siblings that were not moved keep their
// ranks, so duplicates and gaps may result and readers must treat the
// position as an ordering hint.
func (s *OrderingService) ReorderTasks(entries []TaskReorderEntry) error {
	for _, e := range entries {
		if e.Position != nil && *e.Position < 1 {
			return ErrInvalidPosition
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		taskRepo := repository.NewTaskRepository(tx)

		for _, entry := range entries {
			task, err := taskRepo.FindByID(entry.TaskID)
			if err != nil {
				return fmt.Errorf("failed to load task: %w", err)
			}
			if task == nil {
				return ErrTaskNotFound
			}

			if entry.ClearParent {
				task.ParentID = nil
			} else if entry.NewParentID != nil {
				parent, err := taskRepo.FindByID(*entry.NewParentID)
				if err != nil {
					return fmt.Errorf("failed to load parent task: %w", err)
				}
				if parent == nil || !parent.SameOwner(task) {
					return ErrParentTaskNotFound
				}
				task.ParentID = entry.NewParentID
			}

			if entry.Position != nil {
				task.Position = *entry.Position
			} else {
				maxPos, err := taskRepo.MaxSiblingPosition(task.EntityType, task.EntityID, task.ParentID)
				if err != nil {
					return fmt.Errorf("failed to find sibling positions: %w", err)
				}
				task.Position = maxPos + 1
			}

			if err := taskRepo.Save(task); err != nil {
				return fmt.Errorf("failed to save task order: %w", err)
			}
		}
		return nil
	})
}

// ReorderStatuses rewrites a pulse's custom status positions to match the
// given id order, 1-based and dense. Because positions drive the derived
// status enum, a resync job per status is dispatched after commit; the
// reorder itself succeeds regardless of how the resyncs fare.
func (s *OrderingService) ReorderStatuses(pulseID uint64, orderedIDs []uint64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		statusRepo := repository.NewStatusRepository(tx)

		statuses, err := statusRepo.ListByPulse(pulseID)
		if err != nil {
			return fmt.Errorf("failed to list statuses: %w", err)
		}

		owned := make(map[uint64]struct{}, len(statuses))
		for _, st := range statuses {
			owned[st.ID] = struct{}{}
		}
		if len(orderedIDs) != len(statuses) {
			return ErrStatusListMismatch
		}
		seen := make(map[uint64]struct{}, len(orderedIDs))
		for _, id := range orderedIDs {
			if _, ok := owned[id]; !ok {
				return ErrStatusListMismatch
			}
			if _, dup := seen[id]; dup {
				return ErrStatusListMismatch
			}
			seen[id] = struct{}{}
		}

		for i, id := range orderedIDs {
			if err := statusRepo.UpdatePosition(id, i+1); err != nil {
				return fmt.Errorf("failed to update status position: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range orderedIDs {
		s.dispatcher.Dispatch(NewStatusRankResyncJob(s.db, id))
	}
	return nil
}

// statusRankResyncJob re-derives the status enum of every task pointing at
// a status row after its position changed.
type statusRankResyncJob struct {
	db       *gorm.DB
	statusID uint64
	syncer   StatusSyncer
}

// NewStatusRankResyncJob creates a resync job for one status row.
func NewStatusRankResyncJob(db *gorm.DB, statusID uint64) queue.Job {
	return &statusRankResyncJob{db: db, statusID: statusID}
}

func (j *statusRankResyncJob) Name() string {
	return "task-status-rank-resync"
}

func (j *statusRankResyncJob) Handle(ctx context.Context) error {
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tasks []models.Task
		if err := tx.Where("task_status_id = ?", j.statusID).Find(&tasks).Error; err != nil {
			return fmt.Errorf("failed to list tasks for resync: %w", err)
		}
		for i := range tasks {
			if err := j.syncer.SyncCustomToEnum(tx, &tasks[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
