package services

import (
	"testing"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"pgregory.net/rapid"
)

type StatusSyncTestSuite struct {
	suite.Suite
	db     *gorm.DB
	syncer StatusSyncer
	user   *models.User
}

func (s *StatusSyncTestSuite) SetupTest() {
	s.db = openTestDB(&s.Suite)
	s.user = createTestUser(&s.Suite, s.db, "alice")
}

func (s *StatusSyncTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *StatusSyncTestSuite) defaultStatusAt(position int) *models.TaskStatus {
	row, err := repository.NewStatusRepository(s.db).FindDefaultByPosition(position)
	s.Require().NoError(err)
	s.Require().NotNil(row)
	return row
}

func (s *StatusSyncTestSuite) TestEnumResolvesAgainstDefaults() {
	pulse := createTestPulse(&s.Suite, s.db, "Defaults", models.StatusOptionDefault)

	tests := []struct {
		status   models.Status
		position int
	}{
		{models.StatusTodo, 1},
		{models.StatusInProgress, 2},
		{models.StatusOverdue, 2},
		{models.StatusCompleted, 3},
	}

	for _, tt := range tests {
		id, err := s.syncer.StatusIDForEnum(s.db, pulse, tt.status)
		s.Require().NoError(err, tt.status)
		assert.Equal(s.T(), s.defaultStatusAt(tt.position).ID, *id, tt.status)
	}
}

func (s *StatusSyncTestSuite) TestEnumResolvesAgainstCustomList() {
	pulse := createTestPulse(&s.Suite, s.db, "Custom", models.StatusOptionCustom)
	statuses := createTestStatuses(&s.Suite, s.db, pulse.ID, "Backlog", "Doing", "Review", "Done")

	id, err := s.syncer.StatusIDForEnum(s.db, pulse, models.StatusTodo)
	s.Require().NoError(err)
	assert.Equal(s.T(), statuses[0].ID, *id)

	id, err = s.syncer.StatusIDForEnum(s.db, pulse, models.StatusInProgress)
	s.Require().NoError(err)
	assert.Equal(s.T(), statuses[1].ID, *id)

	// COMPLETED maps to the last row, not literally position 3
	id, err = s.syncer.StatusIDForEnum(s.db, pulse, models.StatusCompleted)
	s.Require().NoError(err)
	assert.Equal(s.T(), statuses[3].ID, *id)
}

func (s *StatusSyncTestSuite) TestRowDrivesEnum() {
	pulse := createTestPulse(&s.Suite, s.db, "Board", models.StatusOptionCustom)
	statuses := createTestStatuses(&s.Suite, s.db, pulse.ID, "Backlog", "Doing", "Review", "Done")

	tests := []struct {
		row  models.TaskStatus
		want models.Status
	}{
		{statuses[0], models.StatusTodo},
		{statuses[1], models.StatusInProgress},
		{statuses[2], models.StatusInProgress},
		{statuses[3], models.StatusCompleted},
	}

	for _, tt := range tests {
		task := createTestTask(&s.Suite, s.db, pulse, s.user.ID, "task for "+tt.row.Label)
		s.Require().NoError(s.db.Model(task).UpdateColumn("task_status_id", tt.row.ID).Error)
		task.TaskStatusID = &tt.row.ID

		s.Require().NoError(s.syncer.SyncCustomToEnum(s.db, task))

		var stored models.Task
		s.Require().NoError(s.db.First(&stored, task.ID).Error)
		s.Require().NotNil(stored.Status)
		assert.Equal(s.T(), tt.want, *stored.Status, tt.row.Label)
	}
}

// With only two columns the last row is not terminal; completing requires
// at least three.
func (s *StatusSyncTestSuite) TestShortListHasNoCompletedColumn() {
	pulse := createTestPulse(&s.Suite, s.db, "Narrow", models.StatusOptionCustom)
	statuses := createTestStatuses(&s.Suite, s.db, pulse.ID, "Open", "Closed")

	task := createTestTask(&s.Suite, s.db, pulse, s.user.ID, "narrow task")
	s.Require().NoError(s.db.Model(task).UpdateColumn("task_status_id", statuses[1].ID).Error)
	task.TaskStatusID = &statuses[1].ID

	s.Require().NoError(s.syncer.SyncCustomToEnum(s.db, task))

	var stored models.Task
	s.Require().NoError(s.db.First(&stored, task.ID).Error)
	assert.Equal(s.T(), models.StatusInProgress, *stored.Status)
}

func (s *StatusSyncTestSuite) TestEnumDrivesRow() {
	pulse := createTestPulse(&s.Suite, s.db, "Sync", models.StatusOptionCustom)
	statuses := createTestStatuses(&s.Suite, s.db, pulse.ID, "Backlog", "Doing", "Done")

	task := createTestTask(&s.Suite, s.db, pulse, s.user.ID, "sync me")
	completed := models.StatusCompleted
	s.Require().NoError(s.db.Model(task).UpdateColumn("status", completed).Error)
	task.Status = &completed

	s.Require().NoError(s.syncer.SyncEnumToCustom(s.db, pulse, task))

	var stored models.Task
	s.Require().NoError(s.db.First(&stored, task.ID).Error)
	s.Require().NotNil(stored.TaskStatusID)
	assert.Equal(s.T(), statuses[2].ID, *stored.TaskStatusID)
}

func (s *StatusSyncTestSuite) TestTaskWithoutRowIsLeftAlone() {
	pulse := createTestPulse(&s.Suite, s.db, "Bare", models.StatusOptionDefault)
	task := createTestTask(&s.Suite, s.db, pulse, s.user.ID, "bare task")

	s.Require().NoError(s.syncer.SyncCustomToEnum(s.db, task))

	var stored models.Task
	s.Require().NoError(s.db.First(&stored, task.ID).Error)
	assert.Nil(s.T(), stored.Status)
}

func TestStatusSyncTestSuite(t *testing.T) {
	suite.Run(t, new(StatusSyncTestSuite))
}

// Deriving the enum from a row is deterministic, idempotent and never
// yields OVERDUE, for any board size and position.
func TestRowToEnumDerivation(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Pulse{}, &models.PulseMember{},
		&models.TaskStatus{}, &models.Task{}, &models.TaskDependency{}, &models.Assignee{},
	); err != nil {
		t.Fatal(err)
	}

	user := models.User{Username: "prop", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}

	var syncer StatusSyncer

	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(2, 6).Draw(rt, "size")
		position := rapid.IntRange(1, size).Draw(rt, "position")

		pulse := models.Pulse{
			Name:         "prop board",
			InviteCode:   rapid.StringMatching(`[a-z0-9]{12}`).Draw(rt, "code"),
			StatusOption: models.StatusOptionCustom,
		}
		if err := db.Create(&pulse).Error; err != nil {
			rt.Fatal(err)
		}

		var rowAt *models.TaskStatus
		for i := 1; i <= size; i++ {
			row := models.TaskStatus{PulseID: &pulse.ID, Label: "col", Position: i}
			if err := db.Create(&row).Error; err != nil {
				rt.Fatal(err)
			}
			if i == position {
				rowAt = &row
			}
		}

		task := models.Task{
			Title:        rapid.StringMatching(`[a-z]{5,20}`).Draw(rt, "title"),
			Type:         models.TaskTypeTask,
			EntityType:   pulse.TypeTag(),
			EntityID:     pulse.ID,
			CreatorID:    user.ID,
			TaskStatusID: &rowAt.ID,
		}
		if err := db.Create(&task).Error; err != nil {
			rt.Fatal(err)
		}

		if err := syncer.SyncCustomToEnum(db, &task); err != nil {
			rt.Fatal(err)
		}
		first := *task.Status
		if err := syncer.SyncCustomToEnum(db, &task); err != nil {
			rt.Fatal(err)
		}
		second := *task.Status

		if first != second {
			rt.Fatalf("derivation not idempotent: %s then %s", first, second)
		}
		if first == models.StatusOverdue {
			rt.Fatalf("position mapping produced OVERDUE")
		}

		var want models.Status
		switch {
		case position == 1:
			want = models.StatusTodo
		case position == size && position >= 3:
			want = models.StatusCompleted
		default:
			want = models.StatusInProgress
		}
		if first != want {
			rt.Fatalf("position %d of %d derived %s, want %s", position, size, first, want)
		}
	})
}
