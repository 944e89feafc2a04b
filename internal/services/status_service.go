package services

import (
	"errors"
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/constants"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrStatusImmutable       = errors.New("default statuses cannot be modified")
	ErrStatusMinimumRequired = errors.New("a pulse must keep at least two statuses")
)

// StatusService manages a pulse's custom status list. Default statuses
// are shared rows and never change through this service.
type StatusService struct {
	db     *gorm.DB
	syncer StatusSyncer
}

// NewStatusService creates a new status service
func NewStatusService(db *gorm.DB) *StatusService {
	return &StatusService{db: db}
}

// CreateStatusInput contains the data needed to create a custom status
type CreateStatusInput struct {
	PulseID uint64
	Label   string
	Color   string
}

// UpdateStatusInput contains the data for updating a custom status
type UpdateStatusInput struct {
	Label *string
	Color *string
}

// ListStatuses returns the status set in effect for a pulse: its custom
// statuses when it has switched to them, the shared defaults otherwise.
func (s *StatusService) ListStatuses(pulse *models.Pulse) ([]models.TaskStatus, error) {
	repo := repository.NewStatusRepository(s.db)
	if pulse.UsesCustomStatuses() {
		return repo.ListByPulse(pulse.ID)
	}
	return repo.ListDefaults()
}

// GetStatus retrieves a status row by id.
func (s *StatusService) GetStatus(statusID uint64) (*models.TaskStatus, error) {
	status, err := repository.NewStatusRepository(s.db).FindByID(statusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status: %w", err)
	}
	if status == nil {
		return nil, ErrStatusNotFound
	}
	return status, nil
}

// CreateStatus appends a custom status at the end of the pulse's list.
func (s *StatusService) CreateStatus(input CreateStatusInput) (*models.TaskStatus, error) {
	var status *models.TaskStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewStatusRepository(tx)

		maxPos, err := repo.MaxPositionByPulse(input.PulseID)
		if err != nil {
			return fmt.Errorf("failed to find status positions: %w", err)
		}

		status = &models.TaskStatus{
			PulseID:  &input.PulseID,
			Label:    input.Label,
			Color:    input.Color,
			Position: maxPos + 1,
		}
		if err := repo.Create(status); err != nil {
			return fmt.Errorf("failed to create status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// UpdateStatus changes a custom status's label or color. Position changes
// go through the ordering service instead.
func (s *StatusService) UpdateStatus(statusID uint64, input UpdateStatusInput) (*models.TaskStatus, error) {
	repo := repository.NewStatusRepository(s.db)

	status, err := repo.FindByID(statusID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status: %w", err)
	}
	if status == nil {
		return nil, ErrStatusNotFound
	}
	if status.IsDefault() {
		return nil, ErrStatusImmutable
	}

	if input.Label != nil {
		status.Label = *input.Label
	}
	if input.Color != nil {
		status.Color = *input.Color
	}
	if err := repo.Save(status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return status, nil
}

// DeleteStatus removes a custom status, compacts the remaining positions
// and moves tasks that referenced it to the first remaining status. A
// pulse never drops below two statuses so the position mapping stays
// meaningful.
func (s *StatusService) DeleteStatus(statusID uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewStatusRepository(tx)

		status, err := repo.FindByID(statusID)
		if err != nil {
			return fmt.Errorf("failed to load status: %w", err)
		}
		if status == nil {
			return ErrStatusNotFound
		}
		if status.IsDefault() {
			return ErrStatusImmutable
		}

		count, err := repo.CountByPulse(*status.PulseID)
		if err != nil {
			return fmt.Errorf("failed to count statuses: %w", err)
		}
		if count <= constants.MinStatusesPerPulse {
			return ErrStatusMinimumRequired
		}

		if err := repo.Delete(statusID); err != nil {
			return fmt.Errorf("failed to delete status: %w", err)
		}

		remaining, err := repo.ListByPulse(*status.PulseID)
		if err != nil {
			return fmt.Errorf("failed to list remaining statuses: %w", err)
		}
		for i, st := range remaining {
			if st.Position != i+1 {
				if err := repo.UpdatePosition(st.ID, i+1); err != nil {
					return fmt.Errorf("failed to compact status positions: %w", err)
				}
			}
		}

		fallback := remaining[0]
		var orphaned []models.Task
		if err := tx.Where("task_status_id = ?", statusID).Find(&orphaned).Error; err != nil {
			return fmt.Errorf("failed to list affected tasks: %w", err)
		}
		for i := range orphaned {
			task := &orphaned[i]
			if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).
				UpdateColumn("task_status_id", fallback.ID).Error; err != nil {
				return fmt.Errorf("failed to reassign task status: %w", err)
			}
			task.TaskStatusID = &fallback.ID
			if err := s.syncer.SyncCustomToEnum(tx, task); err != nil {
				return err
			}
		}
		return nil
	})
}
