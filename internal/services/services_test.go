package services

import (
	"context"
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/database"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/queue"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB creates an in-memory SQLite database with the full schema and
// the default status rows seeded.
func openTestDB(s *suite.Suite) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Pulse{},
		&models.PulseMember{},
		&models.TaskStatus{},
		&models.Task{},
		&models.TaskDependency{},
		&models.Assignee{},
	)
	s.Require().NoError(err)
	s.Require().NoError(database.SeedDefaultStatuses(db))

	return db
}

func createTestUser(s *suite.Suite, db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
	}
	s.Require().NoError(db.Create(user).Error)
	return user
}

func createTestPulse(s *suite.Suite, db *gorm.DB, name string, option models.StatusOption) *models.Pulse {
	pulse := &models.Pulse{
		Name:         name,
		InviteCode:   name + "-CODE",
		StatusOption: option,
	}
	s.Require().NoError(db.Create(pulse).Error)
	return pulse
}

// createTestStatuses gives the pulse a custom status list at positions
// 1..len(labels).
func createTestStatuses(s *suite.Suite, db *gorm.DB, pulseID uint64, labels ...string) []models.TaskStatus {
	statuses := make([]models.TaskStatus, len(labels))
	for i, label := range labels {
		statuses[i] = models.TaskStatus{
			PulseID:  &pulseID,
			Label:    label,
			Color:    fmt.Sprintf("#%06x", i),
			Position: i + 1,
		}
		s.Require().NoError(db.Create(&statuses[i]).Error)
	}
	return statuses
}

func createTestTask(s *suite.Suite, db *gorm.DB, pulse *models.Pulse, creatorID uint64, title string) *models.Task {
	var count int64
	s.Require().NoError(db.Unscoped().Model(&models.Task{}).
		Where("entity_type = ? AND entity_id = ?", pulse.TypeTag(), pulse.ID).
		Count(&count).Error)

	task := &models.Task{
		TaskNumber: fmt.Sprintf("T-%03d", count+1),
		Title:      title,
		Type:       models.TaskTypeTask,
		EntityType: pulse.TypeTag(),
		EntityID:   pulse.ID,
		CreatorID:  creatorID,
	}
	s.Require().NoError(db.Create(task).Error)
	return task
}

// syncDispatcher runs jobs inline, keeping tests deterministic.
type syncDispatcher struct {
	errs []error
}

func (d *syncDispatcher) Dispatch(job queue.Job) {
	if err := job.Handle(context.Background()); err != nil {
		d.errs = append(d.errs, err)
	}
}
