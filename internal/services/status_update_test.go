package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pulseworks/pulse-tasks/internal/constants"
	"github.com/pulseworks/pulse-tasks/internal/lock"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/taskable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type StatusUpdateTestSuite struct {
	suite.Suite
	db      *gorm.DB
	locker  *lock.KeyedLocker
	service *StatusUpdateService
	pulse   *models.Pulse
	user    *models.User
	task    *models.Task
}

func (s *StatusUpdateTestSuite) SetupTest() {
	s.db = openTestDB(&s.Suite)
	s.locker = lock.NewKeyedLocker()
	tasks := NewTaskService(s.db, taskable.DefaultRegistry())
	s.service = NewStatusUpdateService(s.db, tasks, s.locker)
	s.pulse = createTestPulse(&s.Suite, s.db, "Workspace", models.StatusOptionDefault)
	s.user = createTestUser(&s.Suite, s.db, "alice")

	task, err := tasks.CreateTask(CreateTaskInput{
		EntityType: models.EntityTypePulse,
		EntityID:   s.pulse.ID,
		Title:      "Track me",
		CreatorID:  s.user.ID,
	})
	s.Require().NoError(err)
	s.task = task
}

func (s *StatusUpdateTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *StatusUpdateTestSuite) TestUpdateByEnum() {
	completed := models.StatusCompleted
	updated, err := s.service.UpdateTaskStatus(s.task.ID, StatusUpdateInput{
		Status:    &completed,
		UpdatedBy: s.user.ID,
	})
	s.Require().NoError(err)

	s.Require().NotNil(updated.Status)
	assert.Equal(s.T(), models.StatusCompleted, *updated.Status)
	s.Require().NotNil(updated.TaskStatus)
	assert.Equal(s.T(), 3, updated.TaskStatus.Position)
}

func (s *StatusUpdateTestSuite) TestUpdateByRow() {
	custom := createTestPulse(&s.Suite, s.db, "Custom Board", models.StatusOptionCustom)
	rows := createTestStatuses(&s.Suite, s.db, custom.ID, "Backlog", "Doing", "Done")
	task := createTestTask(&s.Suite, s.db, custom, s.user.ID, "Board task")

	updated, err := s.service.UpdateTaskStatus(task.ID, StatusUpdateInput{
		TaskStatusID: &rows[2].ID,
		UpdatedBy:    s.user.ID,
	})
	s.Require().NoError(err)

	s.Require().NotNil(updated.TaskStatusID)
	assert.Equal(s.T(), rows[2].ID, *updated.TaskStatusID)
	s.Require().NotNil(updated.Status)
	assert.Equal(s.T(), models.StatusCompleted, *updated.Status)
}

func (s *StatusUpdateTestSuite) TestMissingRepresentationRejected() {
	_, err := s.service.UpdateTaskStatus(s.task.ID, StatusUpdateInput{UpdatedBy: s.user.ID})
	assert.ErrorIs(s.T(), err, ErrInvalidTaskStatus)
}

func (s *StatusUpdateTestSuite) TestUnknownTask() {
	todo := models.StatusTodo
	_, err := s.service.UpdateTaskStatus(99999, StatusUpdateInput{
		Status:    &todo,
		UpdatedBy: s.user.ID,
	})
	assert.ErrorIs(s.T(), err, ErrTaskNotFound)
}

func (s *StatusUpdateTestSuite) TestQueuesBehindHolder() {
	guard, err := s.locker.Acquire(
		fmt.Sprintf("task-status:%d", s.task.ID),
		time.Second, constants.StatusLockMaxHold,
	)
	s.Require().NoError(err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		guard.Release()
	}()

	completed := models.StatusCompleted
	updated, err := s.service.UpdateTaskStatus(s.task.ID, StatusUpdateInput{
		Status:    &completed,
		UpdatedBy: s.user.ID,
	})
	s.Require().NoError(err)
	assert.Equal(s.T(), models.StatusCompleted, *updated.Status)
}

func (s *StatusUpdateTestSuite) TestLockTimeout() {
	guard, err := s.locker.Acquire(
		fmt.Sprintf("task-status:%d", s.task.ID),
		time.Second, time.Minute,
	)
	s.Require().NoError(err)
	defer guard.Release()

	completed := models.StatusCompleted
	_, err = s.service.UpdateTaskStatus(s.task.ID, StatusUpdateInput{
		Status:    &completed,
		UpdatedBy: s.user.ID,
	})
	assert.ErrorIs(s.T(), err, ErrStatusLockTimeout)
}

func (s *StatusUpdateTestSuite) TestDifferentTasksDoNotContend() {
	guard, err := s.locker.Acquire(
		fmt.Sprintf("task-status:%d", s.task.ID+1),
		time.Second, time.Minute,
	)
	s.Require().NoError(err)
	defer guard.Release()

	completed := models.StatusCompleted
	_, err = s.service.UpdateTaskStatus(s.task.ID, StatusUpdateInput{
		Status:    &completed,
		UpdatedBy: s.user.ID,
	})
	assert.NoError(s.T(), err)
}

func TestStatusUpdateError(t *testing.T) {
	cause := errors.New("write failed")
	err := &StatusUpdateError{Err: cause}
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "write failed")
}

func TestStatusUpdateTestSuite(t *testing.T) {
	suite.Run(t, new(StatusUpdateTestSuite))
}
