package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pulseworks/pulse-tasks/internal/database"
	"github.com/pulseworks/pulse-tasks/internal/lock"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/queue"
	"github.com/pulseworks/pulse-tasks/internal/services"
	"github.com/pulseworks/pulse-tasks/internal/taskable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	taskService *services.TaskService
	handler     *TaskHandler
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Pulse{},
		&models.PulseMember{},
		&models.TaskStatus{},
		&models.Task{},
		&models.TaskDependency{},
		&models.Assignee{},
	)
	suite.Require().NoError(err)
	suite.Require().NoError(database.SeedDefaultStatuses(suite.db))

	// Set the test DB as the default database
	database.SetDB(suite.db)

	// Wire real services over the test database
	suite.taskService = services.NewTaskService(suite.db, taskable.DefaultRegistry())
	statusUpdates := services.NewStatusUpdateService(suite.db, suite.taskService, lock.NewKeyedLocker())
	ordering := services.NewOrderingService(suite.db, queue.NewAsyncDispatcher())
	suite.handler = NewTaskHandler(suite.taskService, statusUpdates, ordering)

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper functions to create test data
func (suite *TaskHandlerTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskHandlerTestSuite) createTestPulse(name string) *models.Pulse {
	pulse := &models.Pulse{
		Name:         name,
		InviteCode:   name + "_CODE",
		StatusOption: models.StatusOptionDefault,
	}
	suite.db.Create(pulse)
	return pulse
}

func (suite *TaskHandlerTestSuite) createTestPulseMember(pulseID, userID uint64) *models.PulseMember {
	member := &models.PulseMember{
		PulseID: pulseID,
		UserID:  userID,
		Role:    models.RoleMember,
	}
	suite.db.Create(member)
	return member
}

func (suite *TaskHandlerTestSuite) createTestTask(title string, creatorID, pulseID uint64) *models.Task {
	task, err := suite.taskService.CreateTask(services.CreateTaskInput{
		EntityType: models.EntityTypePulse,
		EntityID:   pulseID,
		Title:      title,
		CreatorID:  creatorID,
	})
	suite.Require().NoError(err)
	return task
}

// Helper function to create authenticated context
func (suite *TaskHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("user_id", userID)

	return c, w
}

// Helper function to set task context (simulates RequireTaskAccess middleware)
func (suite *TaskHandlerTestSuite) setTaskContext(c *gin.Context, task models.Task) {
	c.Set("task", task)
}

// TestListTasks_Success tests successful task listing
func (suite *TaskHandlerTestSuite) TestListTasks_Success() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	suite.createTestPulseMember(pulse.ID, user.ID)
	task := suite.createTestTask("Test Task", user.ID, pulse.ID)

	c, w := suite.createAuthContext("GET", "/api/tasks", nil, user.ID)
	c.Request.URL.RawQuery = "pulse_id=1"

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Contains(suite.T(), response, "tasks")
	assert.Equal(suite.T(), float64(1), response["total_count"])

	tasks := response["tasks"].([]interface{})
	suite.Require().GreaterOrEqual(len(tasks), 1)

	firstTask := tasks[0].(map[string]interface{})
	assert.Equal(suite.T(), task.Title, firstTask["title"])
	assert.Equal(suite.T(), task.TaskNumber, firstTask["task_number"])
}

// TestListTasks_Unauthorized tests listing without authentication
func (suite *TaskHandlerTestSuite) TestListTasks_Unauthorized() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tasks", nil)
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestListTasks_NotPulseMember tests listing when user is not a member
func (suite *TaskHandlerTestSuite) TestListTasks_NotPulseMember() {
	user := suite.createTestUser("alice")
	suite.createTestPulse("Test Pulse")
	// Don't add user as member

	c, w := suite.createAuthContext("GET", "/api/tasks", nil, user.ID)
	c.Request.URL.RawQuery = "pulse_id=1"

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestListTasks_StatusFilter tests filtering by the status enum
func (suite *TaskHandlerTestSuite) TestListTasks_StatusFilter() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	suite.createTestPulseMember(pulse.ID, user.ID)
	suite.createTestTask("Open Task", user.ID, pulse.ID)

	c, w := suite.createAuthContext("GET", "/api/tasks", nil, user.ID)
	c.Request.URL.RawQuery = "pulse_id=1&status=COMPLETED"

	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), response["tasks"])
}

// TestGetTask_Success tests successful task retrieval
func (suite *TaskHandlerTestSuite) TestGetTask_Success() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Test Task", user.ID, pulse.ID)

	c, w := suite.createAuthContext("GET", "/api/tasks/1", nil, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.GetTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), task.Title, response["title"])
	assert.Equal(suite.T(), "TODO", response["status"])
}

// TestGetTask_NotFoundInContext tests when task is not in context
func (suite *TaskHandlerTestSuite) TestGetTask_NotFoundInContext() {
	user := suite.createTestUser("alice")
	c, w := suite.createAuthContext("GET", "/api/tasks/1", nil, user.ID)

	suite.handler.GetTask(c)

	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
}

// TestCreateTask_Success tests successful task creation
func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	suite.createTestPulseMember(pulse.ID, user.ID)

	requestBody := map[string]interface{}{
		"title":       "New Task",
		"description": "Task Description",
		"pulse_id":    pulse.ID,
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "New Task", response["title"])
	assert.NotEmpty(suite.T(), response["task_number"])
	assert.Equal(suite.T(), "TODO", response["status"])
}

// TestCreateTask_Duplicate tests creating the same task twice
func (suite *TaskHandlerTestSuite) TestCreateTask_Duplicate() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	suite.createTestPulseMember(pulse.ID, user.ID)

	requestBody := map[string]interface{}{
		"title":    "Same Task",
		"pulse_id": pulse.ID,
	}
	body, _ := json.Marshal(requestBody)

	c, _ := suite.createAuthContext("POST", "/api/tasks", body, user.ID)
	suite.handler.CreateTask(c)

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)
	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestCreateTask_InvalidRequest tests task creation with invalid request
func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidRequest() {
	user := suite.createTestUser("alice")

	// Missing required field: title
	requestBody := map[string]interface{}{
		"pulse_id": 1,
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestCreateTask_NotPulseMember tests task creation when user is not a member
func (suite *TaskHandlerTestSuite) TestCreateTask_NotPulseMember() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	// Don't add user as member

	requestBody := map[string]interface{}{
		"title":    "New Task",
		"pulse_id": pulse.ID,
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestCreateTask_MissingDependency tests creating a task that depends on a
// task that does not exist
func (suite *TaskHandlerTestSuite) TestCreateTask_MissingDependency() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	suite.createTestPulseMember(pulse.ID, user.ID)
	other := suite.createTestTask("Existing", user.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"title":          "Blocked Task",
		"pulse_id":       pulse.ID,
		"dependency_ids": []uint64{other.ID, 99999},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

// TestUpdateTask_Success tests successful task update
func (suite *TaskHandlerTestSuite) TestUpdateTask_Success() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Old Title", user.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"title":       "Updated Title",
		"description": "Updated Description",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("PATCH", "/api/tasks/1", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Updated Title", response["title"])
	assert.Equal(suite.T(), "Updated Description", response["description"])
}

// TestUpdateTask_StatusDrivesRow tests that an enum update carries the
// status row along
func (suite *TaskHandlerTestSuite) TestUpdateTask_StatusDrivesRow() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Moving Task", user.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"status": "COMPLETED",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("PATCH", "/api/tasks/1", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "COMPLETED", response["status"])

	taskStatus := response["task_status"].(map[string]interface{})
	assert.Equal(suite.T(), float64(3), taskStatus["position"])
}

// TestUpdateTask_InvalidRequest tests task update with invalid request
func (suite *TaskHandlerTestSuite) TestUpdateTask_InvalidRequest() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Test Task", user.ID, pulse.ID)

	c, w := suite.createAuthContext("PATCH", "/api/tasks/1", []byte("invalid json"), user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestUpdateTaskStatus_Success tests the dedicated status endpoint
func (suite *TaskHandlerTestSuite) TestUpdateTaskStatus_Success() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Status Task", user.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"status": "INPROGRESS",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("PATCH", "/api/tasks/1/status", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateTaskStatus(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "INPROGRESS", response["status"])
}

// TestUpdateTaskStatus_MissingRepresentation tests the status endpoint with
// an empty body
func (suite *TaskHandlerTestSuite) TestUpdateTaskStatus_MissingRepresentation() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Status Task", user.ID, pulse.ID)

	body, _ := json.Marshal(map[string]interface{}{})

	c, w := suite.createAuthContext("PATCH", "/api/tasks/1/status", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateTaskStatus(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestDeleteTask_Success tests successful task deletion
func (suite *TaskHandlerTestSuite) TestDeleteTask_Success() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Task to Delete", user.ID, pulse.ID)

	c, w := suite.createAuthContext("DELETE", "/api/tasks/1", nil, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Task deleted successfully", response["message"])

	// Verify task is deleted
	var deletedTask models.Task
	err = suite.db.First(&deletedTask, task.ID).Error
	assert.Error(suite.T(), err) // Should return error because of soft delete
}

// TestDeleteTask_NotCreator tests task deletion by non-creator
func (suite *TaskHandlerTestSuite) TestDeleteTask_NotCreator() {
	user1 := suite.createTestUser("alice")
	user2 := suite.createTestUser("bob")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Task to Delete", user1.ID, pulse.ID)

	c, w := suite.createAuthContext("DELETE", "/api/tasks/1", nil, user2.ID)
	suite.setTaskContext(c, *task)

	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestAssignTask_Success tests successful task assignment
func (suite *TaskHandlerTestSuite) TestAssignTask_Success() {
	user1 := suite.createTestUser("alice")
	user2 := suite.createTestUser("bob")
	pulse := suite.createTestPulse("Test Pulse")
	suite.createTestPulseMember(pulse.ID, user1.ID)
	suite.createTestPulseMember(pulse.ID, user2.ID)
	task := suite.createTestTask("Task to Assign", user1.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"user_ids": []uint64{user2.ID},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/assign", body, user1.ID)
	suite.setTaskContext(c, *task)

	suite.handler.AssignTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Users assigned successfully", response["message"])

	// Verify assignment was created
	var assignee models.Assignee
	err = suite.db.Where("task_id = ? AND user_id = ?", task.ID, user2.ID).First(&assignee).Error
	assert.NoError(suite.T(), err)
}

// TestAssignTask_UnknownUser tests task assignment with non-existent user
func (suite *TaskHandlerTestSuite) TestAssignTask_UnknownUser() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Task to Assign", user.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"user_ids": []uint64{9999},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/assign", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.AssignTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestAssignTask_EmptyUserIDs tests task assignment with empty user IDs
func (suite *TaskHandlerTestSuite) TestAssignTask_EmptyUserIDs() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Task to Assign", user.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"user_ids": []uint64{},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/assign", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.AssignTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestUnassignTask_Success tests successful task unassignment
func (suite *TaskHandlerTestSuite) TestUnassignTask_Success() {
	user1 := suite.createTestUser("alice")
	user2 := suite.createTestUser("bob")
	pulse := suite.createTestPulse("Test Pulse")
	task := suite.createTestTask("Task to Unassign", user1.ID, pulse.ID)

	suite.Require().NoError(suite.taskService.AssignUsers(task, []uint64{user2.ID}))

	requestBody := map[string]interface{}{
		"user_ids": []uint64{user2.ID},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/unassign", body, user1.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UnassignTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Users unassigned successfully", response["message"])

	// Verify assignment was deleted
	var deleted models.Assignee
	err = suite.db.Where("task_id = ? AND user_id = ?", task.ID, user2.ID).First(&deleted).Error
	assert.Error(suite.T(), err)
}

// TestReorderTasks_Success tests the batch reorder endpoint
func (suite *TaskHandlerTestSuite) TestReorderTasks_Success() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	suite.createTestPulseMember(pulse.ID, user.ID)
	a := suite.createTestTask("First", user.ID, pulse.ID)
	b := suite.createTestTask("Second", user.ID, pulse.ID)

	requestBody := map[string]interface{}{
		"entries": []map[string]interface{}{
			{"task_id": a.ID, "position": 2},
			{"task_id": b.ID, "position": 1},
		},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/pulses/1/tasks/reorder", body, user.ID)
	c.Set("pulse", *pulse)

	suite.handler.ReorderTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var moved models.Task
	suite.Require().NoError(suite.db.First(&moved, a.ID).Error)
	assert.Equal(suite.T(), 2, moved.Position)
}

// TestReorderTasks_ForeignTask tests reordering a task from another pulse
func (suite *TaskHandlerTestSuite) TestReorderTasks_ForeignTask() {
	user := suite.createTestUser("alice")
	pulse := suite.createTestPulse("Test Pulse")
	other := suite.createTestPulse("Other Pulse")
	suite.createTestPulseMember(pulse.ID, user.ID)
	foreign := suite.createTestTask("Foreign", user.ID, other.ID)

	requestBody := map[string]interface{}{
		"entries": []map[string]interface{}{
			{"task_id": foreign.ID, "position": 1},
		},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/pulses/1/tasks/reorder", body, user.ID)
	c.Set("pulse", *pulse)

	suite.handler.ReorderTasks(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
