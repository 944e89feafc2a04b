package repository

import (
	"errors"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"gorm.io/gorm"
)

// GormStatusRepository is a GORM implementation of StatusRepository
type GormStatusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a new StatusRepository
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &GormStatusRepository{db: db}
}

// Create creates a new status
func (r *GormStatusRepository) Create(status *models.TaskStatus) error {
	return r.db.Create(status).Error
}

// Save persists all fields of an existing status
func (r *GormStatusRepository) Save(status *models.TaskStatus) error {
	return r.db.Save(status).Error
}

// FindByID finds a status by ID
func (r *GormStatusRepository) FindByID(id uint64) (*models.TaskStatus, error) {
	var status models.TaskStatus
	if err := r.db.First(&status, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// ListByPulse lists a pulse's custom statuses ordered by position
func (r *GormStatusRepository) ListByPulse(pulseID uint64) ([]models.TaskStatus, error) {
	var statuses []models.TaskStatus
	if err := r.db.
		Where("pulse_id = ? AND type IS NULL", pulseID).
		Order("position ASC").
		Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// ListDefaults lists the built-in default statuses ordered by position
func (r *GormStatusRepository) ListDefaults() ([]models.TaskStatus, error) {
	var statuses []models.TaskStatus
	if err := r.db.
		Where("pulse_id IS NULL AND type = ?", models.TaskStatusTypeDefault).
		Order("position ASC").
		Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// FindByPulseAndPosition finds the pulse's custom status at a position
func (r *GormStatusRepository) FindByPulseAndPosition(pulseID uint64, position int) (*models.TaskStatus, error) {
	var status models.TaskStatus
	if err := r.db.
		Where("pulse_id = ? AND type IS NULL AND position = ?", pulseID, position).
		First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// FindLastByPulse finds the pulse's custom status with the highest position
func (r *GormStatusRepository) FindLastByPulse(pulseID uint64) (*models.TaskStatus, error) {
	var status models.TaskStatus
	if err := r.db.
		Where("pulse_id = ? AND type IS NULL", pulseID).
		Order("position DESC").
		First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// FindDefaultByPosition finds the built-in default status at a position
func (r *GormStatusRepository) FindDefaultByPosition(position int) (*models.TaskStatus, error) {
	var status models.TaskStatus
	if err := r.db.
		Where("pulse_id IS NULL AND type = ? AND position = ?", models.TaskStatusTypeDefault, position).
		First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// MaxPositionByPulse returns the highest position among the pulse's custom
// statuses, or 0
func (r *GormStatusRepository) MaxPositionByPulse(pulseID uint64) (int, error) {
	var max *int
	if err := r.db.Model(&models.TaskStatus{}).
		Where("pulse_id = ? AND type IS NULL", pulseID).
		Select("MAX(position)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// CountByPulse counts the pulse's custom statuses
func (r *GormStatusRepository) CountByPulse(pulseID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.TaskStatus{}).
		Where("pulse_id = ? AND type IS NULL", pulseID).
		Count(&count).Error
	return count, err
}

// UpdatePosition sets a status's position
func (r *GormStatusRepository) UpdatePosition(statusID uint64, position int) error {
	return r.db.Model(&models.TaskStatus{}).
		Where("id = ?", statusID).
		UpdateColumn("position", position).Error
}

// Delete removes a status
func (r *GormStatusRepository) Delete(id uint64) error {
	return r.db.Delete(&models.TaskStatus{}, id).Error
}
