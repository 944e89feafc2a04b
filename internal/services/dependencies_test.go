package services

import (
	"testing"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type DependencyTestSuite struct {
	suite.Suite
	db        *gorm.DB
	validator DependencyValidator
	pulse     *models.Pulse
	user      *models.User
}

func (s *DependencyTestSuite) SetupTest() {
	s.db = openTestDB(&s.Suite)
	s.pulse = createTestPulse(&s.Suite, s.db, "Deps", models.StatusOptionDefault)
	s.user = createTestUser(&s.Suite, s.db, "alice")
}

func (s *DependencyTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *DependencyTestSuite) task(title string) *models.Task {
	return createTestTask(&s.Suite, s.db, s.pulse, s.user.ID, title)
}

// link records a committed dependency edge directly.
func (s *DependencyTestSuite) link(task, dependsOn *models.Task) {
	edge := models.TaskDependency{TaskID: task.ID, DependsOnTaskID: dependsOn.ID}
	s.Require().NoError(s.db.Create(&edge).Error)
}

func (s *DependencyTestSuite) dependencyIDs(task *models.Task) []uint64 {
	ids, err := repository.NewTaskRepository(s.db).ListDependencyIDs(task.ID)
	s.Require().NoError(err)
	return ids
}

func (s *DependencyTestSuite) TestValidSetIsPersisted() {
	a := s.task("A")
	b := s.task("B")
	c := s.task("C")

	err := s.validator.ValidateAndSync(s.db, c, []uint64{a.ID, b.ID})
	s.Require().NoError(err)

	assert.ElementsMatch(s.T(), []uint64{a.ID, b.ID}, s.dependencyIDs(c))
}

func (s *DependencyTestSuite) TestReplacesWholesale() {
	a := s.task("A")
	b := s.task("B")
	c := s.task("C")
	s.link(c, a)

	err := s.validator.ValidateAndSync(s.db, c, []uint64{b.ID})
	s.Require().NoError(err)

	assert.Equal(s.T(), []uint64{b.ID}, s.dependencyIDs(c))
}

func (s *DependencyTestSuite) TestEmptySetClearsEdges() {
	a := s.task("A")
	b := s.task("B")
	s.link(b, a)

	err := s.validator.ValidateAndSync(s.db, b, nil)
	s.Require().NoError(err)

	assert.Empty(s.T(), s.dependencyIDs(b))
}

func (s *DependencyTestSuite) TestSelfDependencyRejected() {
	a := s.task("A")

	err := s.validator.ValidateAndSync(s.db, a, []uint64{a.ID})
	assert.ErrorIs(s.T(), err, ErrSelfDependency)
}

func (s *DependencyTestSuite) TestMissingDependencyRejected() {
	a := s.task("A")

	err := s.validator.ValidateAndSync(s.db, a, []uint64{99999})
	assert.ErrorIs(s.T(), err, ErrDependencyNotFound)
}

func (s *DependencyTestSuite) TestCrossEntityDependencyRejected() {
	other := createTestPulse(&s.Suite, s.db, "Elsewhere", models.StatusOptionDefault)
	a := s.task("A")
	foreign := createTestTask(&s.Suite, s.db, other, s.user.ID, "Foreign Task")

	err := s.validator.ValidateAndSync(s.db, a, []uint64{foreign.ID})
	s.Require().ErrorIs(err, ErrCrossEntityDependency)
	assert.Contains(s.T(), err.Error(), "Foreign Task")
}

func (s *DependencyTestSuite) TestDirectCycleRejected() {
	a := s.task("A")
	b := s.task("B")
	s.link(b, a)

	err := s.validator.ValidateAndSync(s.db, a, []uint64{b.ID})
	s.Require().ErrorIs(err, ErrCircularDependency)
	assert.Contains(s.T(), err.Error(), "B")

	// Nothing was written
	assert.Empty(s.T(), s.dependencyIDs(a))
}

func (s *DependencyTestSuite) TestTransitiveCycleRejected() {
	a := s.task("A")
	b := s.task("B")
	c := s.task("C")
	s.link(b, a)
	s.link(c, b)

	err := s.validator.ValidateAndSync(s.db, a, []uint64{c.ID})
	assert.ErrorIs(s.T(), err, ErrCircularDependency)
}

// A diamond in the graph must not loop the traversal forever.
func (s *DependencyTestSuite) TestDiamondIsNotACycle() {
	a := s.task("A")
	b := s.task("B")
	c := s.task("C")
	d := s.task("D")
	e := s.task("E")
	s.link(b, a)
	s.link(c, a)
	s.link(d, b)
	s.link(d, c)

	err := s.validator.ValidateAndSync(s.db, e, []uint64{d.ID})
	assert.NoError(s.T(), err)
}

func (s *DependencyTestSuite) TestFirstFailureWins() {
	a := s.task("A")
	b := s.task("B")
	s.link(b, a)

	// Self reference is checked before the cycle check
	err := s.validator.ValidateAndSync(s.db, a, []uint64{a.ID, b.ID})
	assert.ErrorIs(s.T(), err, ErrSelfDependency)
}

func TestDependencyTestSuite(t *testing.T) {
	suite.Run(t, new(DependencyTestSuite))
}
