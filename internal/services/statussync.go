package services

import (
	"errors"
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/pulseworks/pulse-tasks/internal/taskable"
	"gorm.io/gorm"
)

var ErrNoStatusForEnum = errors.New("no status row maps to the given enum value")

// StatusSyncer keeps a task's two status representations consistent: the
// fixed enum column and the reference to a positioned status row. Rows at
// position 1 mean TODO, the last row at position 3 or beyond means
// COMPLETED, and everything between maps to INPROGRESS. OVERDUE is a
// derived value and resolves to position 2 going the other way; the
// position mapping never yields it.
type StatusSyncer struct{}

// StatusIDForEnum resolves the status row id that corresponds to an enum
// value under the given owner. Owners on custom statuses resolve against
// their own rows, everyone else against the built-in defaults. When no
// row sits at the computed position the nearest lower row is used, so a
// sparse set still resolves.
func (s StatusSyncer) StatusIDForEnum(tx *gorm.DB, owner taskable.Entity, status models.Status) (*uint64, error) {
	repo := repository.NewStatusRepository(tx)

	if owner.UsesCustomStatuses() {
		return s.resolveCustom(repo, owner.Key(), status)
	}
	return s.resolveDefault(repo, status)
}

func (s StatusSyncer) resolveCustom(repo repository.StatusRepository, pulseID uint64, status models.Status) (*uint64, error) {
	if status == models.StatusCompleted {
		last, err := repo.FindLastByPulse(pulseID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve completed status: %w", err)
		}
		if last == nil {
			return nil, ErrNoStatusForEnum
		}
		return &last.ID, nil
	}

	position := positionForEnum(status)
	row, err := repo.FindByPulseAndPosition(pulseID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve status at position %d: %w", position, err)
	}
	if row == nil {
		// A two-status pulse has no middle row; fall back to the first.
		row, err = repo.FindByPulseAndPosition(pulseID, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve fallback status: %w", err)
		}
	}
	if row == nil {
		return nil, ErrNoStatusForEnum
	}
	return &row.ID, nil
}

func (s StatusSyncer) resolveDefault(repo repository.StatusRepository, status models.Status) (*uint64, error) {
	row, err := repo.FindDefaultByPosition(positionForEnum(status))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default status: %w", err)
	}
	if row == nil {
		return nil, ErrNoStatusForEnum
	}
	return &row.ID, nil
}

// SyncCustomToEnum derives the enum column from the task's status row and
// persists it. Tasks without a status row are left untouched. The write
// goes through UpdateColumn so no model hooks or timestamps fire.
func (s StatusSyncer) SyncCustomToEnum(tx *gorm.DB, task *models.Task) error {
	if task.TaskStatusID == nil {
		return nil
	}

	repo := repository.NewStatusRepository(tx)
	row, err := repo.FindByID(*task.TaskStatusID)
	if err != nil {
		return fmt.Errorf("failed to load status row: %w", err)
	}
	if row == nil {
		return nil
	}

	enum, err := s.enumForRow(repo, row)
	if err != nil {
		return err
	}

	if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).
		UpdateColumn("status", enum).Error; err != nil {
		return fmt.Errorf("failed to write derived status: %w", err)
	}
	task.Status = &enum
	return nil
}

// SyncEnumToCustom derives the status row reference from the task's enum
// column and persists it.
func (s StatusSyncer) SyncEnumToCustom(tx *gorm.DB, owner taskable.Entity, task *models.Task) error {
	if task.Status == nil {
		return nil
	}

	statusID, err := s.StatusIDForEnum(tx, owner, *task.Status)
	if err != nil {
		return err
	}

	if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).
		UpdateColumn("task_status_id", statusID).Error; err != nil {
		return fmt.Errorf("failed to write status reference: %w", err)
	}
	task.TaskStatusID = statusID
	return nil
}

// enumForRow maps a status row to its enum value by position.
func (s StatusSyncer) enumForRow(repo repository.StatusRepository, row *models.TaskStatus) (models.Status, error) {
	if row.Position == 1 {
		return models.StatusTodo, nil
	}

	if row.IsDefault() {
		if row.Position >= 3 {
			return models.StatusCompleted, nil
		}
		return models.StatusInProgress, nil
	}

	max, err := repo.MaxPositionByPulse(*row.PulseID)
	if err != nil {
		return "", fmt.Errorf("failed to find last status position: %w", err)
	}
	if row.Position == max && row.Position >= 3 {
		return models.StatusCompleted, nil
	}
	return models.StatusInProgress, nil
}

// positionForEnum is the reverse mapping for the non-terminal values.
// COMPLETED is handled by the callers since its position depends on the
// status set in play.
func positionForEnum(status models.Status) int {
	switch status {
	case models.StatusTodo:
		return 1
	case models.StatusCompleted:
		return 3
	default:
		// INPROGRESS and OVERDUE both live in the middle band.
		return 2
	}
}
