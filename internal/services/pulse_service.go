package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/pulseworks/pulse-tasks/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrPulseNotFound              = errors.New("pulse not found")
	ErrInvalidPulseName           = errors.New("pulse name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invalid invite code")
	ErrAlreadyPulseMember         = errors.New("user is already a member of this pulse")
	ErrCannotRemoveYourself       = errors.New("cannot remove yourself from the pulse")
	ErrPulseMemberNotFound        = errors.New("pulse member not found")
	ErrInvalidStatusOption        = errors.New("status option must be default or custom")
)

// PulseService provides business logic for pulse operations.
type PulseService struct {
	db        *gorm.DB
	pulseRepo repository.PulseRepository
	syncer    StatusSyncer
}

// NewPulseService creates a new PulseService.
func NewPulseService(db *gorm.DB) *PulseService {
	return &PulseService{
		db:        db,
		pulseRepo: repository.NewPulseRepository(db),
	}
}

// CreatePulseInput represents parameters to create a new pulse.
type CreatePulseInput struct {
	Name    string
	OwnerID uint64
}

// CreatePulse creates a new pulse and assigns the owner.
func (s *PulseService) CreatePulse(input CreatePulseInput) (*models.Pulse, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidPulseName
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	pulse := &models.Pulse{
		Name:         input.Name,
		InviteCode:   inviteCode,
		StatusOption: models.StatusOptionDefault,
	}

	if err := s.pulseRepo.Create(pulse); err != nil {
		return nil, fmt.Errorf("failed to create pulse: %w", err)
	}

	member := &models.PulseMember{
		PulseID:  pulse.ID,
		UserID:   input.OwnerID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}

	if err := s.pulseRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add owner to pulse: %w", err)
	}

	return pulse, nil
}

// ListPulsesForUser returns pulses the user belongs to.
func (s *PulseService) ListPulsesForUser(userID uint64) ([]models.PulseMember, error) {
	memberships, err := s.pulseRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pulses: %w", err)
	}
	return memberships, nil
}

// GetPulseWithMembers returns a pulse and all of its members.
func (s *PulseService) GetPulseWithMembers(pulseID uint64) (*models.Pulse, []models.PulseMember, error) {
	pulse, err := s.pulseRepo.FindByID(pulseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPulseNotFound
		}
		return nil, nil, fmt.Errorf("failed to find pulse: %w", err)
	}

	members, err := s.pulseRepo.ListMembers(pulseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list pulse members: %w", err)
	}

	return pulse, members, nil
}

// UpdatePulseName updates a pulse's name.
func (s *PulseService) UpdatePulseName(pulseID uint64, name string) (*models.Pulse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidPulseName
	}

	pulse, err := s.pulseRepo.FindByID(pulseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPulseNotFound
		}
		return nil, fmt.Errorf("failed to find pulse: %w", err)
	}

	pulse.Name = name
	if err := s.pulseRepo.Update(pulse); err != nil {
		return nil, fmt.Errorf("failed to update pulse: %w", err)
	}

	return pulse, nil
}

// UpdateStatusOption switches the pulse between the default status set and
// its own custom list. On the first switch to custom the defaults are
// copied in as a starting set, and every task's status reference is
// remapped so the two representations stay consistent.
func (s *PulseService) UpdateStatusOption(pulseID uint64, option models.StatusOption) (*models.Pulse, error) {
	if option != models.StatusOptionDefault && option != models.StatusOptionCustom {
		return nil, ErrInvalidStatusOption
	}

	pulse, err := s.pulseRepo.FindByID(pulseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPulseNotFound
		}
		return nil, fmt.Errorf("failed to find pulse: %w", err)
	}
	if pulse.StatusOption == option {
		return pulse, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		statusRepo := repository.NewStatusRepository(tx)

		if option == models.StatusOptionCustom {
			count, err := statusRepo.CountByPulse(pulseID)
			if err != nil {
				return fmt.Errorf("failed to count statuses: %w", err)
			}
			if count == 0 {
				defaults, err := statusRepo.ListDefaults()
				if err != nil {
					return fmt.Errorf("failed to list default statuses: %w", err)
				}
				for _, d := range defaults {
					clone := &models.TaskStatus{
						PulseID:  &pulseID,
						Label:    d.Label,
						Color:    d.Color,
						Position: d.Position,
					}
					if err := statusRepo.Create(clone); err != nil {
						return fmt.Errorf("failed to seed custom statuses: %w", err)
					}
				}
			}
		}

		pulse.StatusOption = option
		if err := tx.Save(pulse).Error; err != nil {
			return fmt.Errorf("failed to update pulse: %w", err)
		}

		// Remap every task onto the now-authoritative status set, driving
		// the reference from the enum mirror.
		var tasks []models.Task
		if err := tx.Where("entity_type = ? AND entity_id = ?", models.EntityTypePulse, pulseID).
			Find(&tasks).Error; err != nil {
			return fmt.Errorf("failed to list pulse tasks: %w", err)
		}
		for i := range tasks {
			if err := s.syncer.SyncEnumToCustom(tx, pulse, &tasks[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pulse, nil
}

// DeletePulse removes a pulse.
func (s *PulseService) DeletePulse(pulseID uint64) error {
	if _, err := s.pulseRepo.FindByID(pulseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPulseNotFound
		}
		return fmt.Errorf("failed to find pulse: %w", err)
	}

	if err := s.pulseRepo.Delete(pulseID); err != nil {
		return fmt.Errorf("failed to delete pulse: %w", err)
	}

	return nil
}

// JoinPulseByInvite adds a user to a pulse via invite code.
func (s *PulseService) JoinPulseByInvite(userID uint64, inviteCode string) (*models.Pulse, error) {
	pulse, err := s.pulseRepo.FindByInviteCode(inviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find pulse by invite code: %w", err)
	}

	if _, err := s.pulseRepo.FindMember(pulse.ID, userID); err == nil {
		return nil, ErrAlreadyPulseMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.PulseMember{
		PulseID:  pulse.ID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	}

	if err := s.pulseRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member to pulse: %w", err)
	}

	return pulse, nil
}

// RegenerateInviteCode generates a new invite code for the pulse.
func (s *PulseService) RegenerateInviteCode(pulseID uint64) (*models.Pulse, error) {
	pulse, err := s.pulseRepo.FindByID(pulseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPulseNotFound
		}
		return nil, fmt.Errorf("failed to find pulse: %w", err)
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	pulse.InviteCode = code
	if err := s.pulseRepo.Update(pulse); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return pulse, nil
}

// RemoveMember removes a member from the pulse.
func (s *PulseService) RemoveMember(pulseID, actorID, targetID uint64) error {
	if targetID == actorID {
		return ErrCannotRemoveYourself
	}

	if _, err := s.pulseRepo.FindMember(pulseID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPulseMemberNotFound
		}
		return fmt.Errorf("failed to find pulse member: %w", err)
	}

	if err := s.pulseRepo.RemoveMember(pulseID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}
