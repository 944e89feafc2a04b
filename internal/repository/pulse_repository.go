package repository

import (
	"github.com/pulseworks/pulse-tasks/internal/models"
	"gorm.io/gorm"
)

// GormPulseRepository is a GORM implementation of PulseRepository
type GormPulseRepository struct {
	db *gorm.DB
}

// NewPulseRepository creates a new PulseRepository
func NewPulseRepository(db *gorm.DB) PulseRepository {
	return &GormPulseRepository{db: db}
}

// Create creates a new pulse
func (r *GormPulseRepository) Create(pulse *models.Pulse) error {
	return r.db.Create(pulse).Error
}

// FindByID finds a pulse by ID
func (r *GormPulseRepository) FindByID(id uint64) (*models.Pulse, error) {
	var pulse models.Pulse
	if err := r.db.First(&pulse, id).Error; err != nil {
		return nil, err
	}
	return &pulse, nil
}

// FindByInviteCode finds a pulse by invite code
func (r *GormPulseRepository) FindByInviteCode(code string) (*models.Pulse, error) {
	var pulse models.Pulse
	if err := r.db.Where("invite_code = ?", code).First(&pulse).Error; err != nil {
		return nil, err
	}
	return &pulse, nil
}

// Update updates a pulse
func (r *GormPulseRepository) Update(pulse *models.Pulse) error {
	return r.db.Save(pulse).Error
}

// Delete deletes a pulse and all related data in a transaction
func (r *GormPulseRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Collect the pulse's tasks so their relation rows can go too
		var taskIDs []uint64
		if err := tx.Model(&models.Task{}).
			Where("entity_type = ? AND entity_id = ?", models.EntityTypePulse, id).
			Pluck("id", &taskIDs).Error; err != nil {
			return err
		}

		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Assignee{}).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ? OR depends_on_task_id IN ?", taskIDs, taskIDs).
				Delete(&models.TaskDependency{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("pulse_id = ?", id).Delete(&models.TaskStatus{}).Error; err != nil {
			return err
		}

		if err := tx.Where("pulse_id = ?", id).Delete(&models.PulseMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Pulse{}, id).Error
	})
}

// AddMember adds a member to a pulse
func (r *GormPulseRepository) AddMember(member *models.PulseMember) error {
	return r.db.Create(member).Error
}

// RemoveMember removes a member from a pulse
func (r *GormPulseRepository) RemoveMember(pulseID, userID uint64) error {
	return r.db.Where("pulse_id = ? AND user_id = ?", pulseID, userID).
		Delete(&models.PulseMember{}).Error
}

// FindMember finds a specific pulse member
func (r *GormPulseRepository) FindMember(pulseID, userID uint64) (*models.PulseMember, error) {
	var member models.PulseMember
	if err := r.db.Where("pulse_id = ? AND user_id = ?", pulseID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembersByUserID lists all pulses a user is a member of
func (r *GormPulseRepository) ListMembersByUserID(userID uint64) ([]models.PulseMember, error) {
	var memberships []models.PulseMember
	if err := r.db.Preload("Pulse").
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembers lists all members of a pulse
func (r *GormPulseRepository) ListMembers(pulseID uint64) ([]models.PulseMember, error) {
	var members []models.PulseMember
	if err := r.db.Preload("User").
		Where("pulse_id = ?", pulseID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
