package repository

import (
	"errors"

	"github.com/pulseworks/pulse-tasks/internal/database"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository. Pass a transaction handle
// to scope all operations to that transaction.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// Save persists all fields of an existing task
func (r *GormTaskRepository) Save(task *models.Task) error {
	return r.db.Save(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &task, nil
}

// FindByIDs loads the given tasks
func (r *GormTaskRepository) FindByIDs(ids []uint64) ([]models.Task, error) {
	var tasks []models.Task
	if len(ids) == 0 {
		return tasks, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindDuplicate looks up a task with the same (title, type, parent) tuple
// under the owner
func (r *GormTaskRepository) FindDuplicate(entityType string, entityID uint64, title string, taskType models.TaskType, parentID *uint64) (*models.Task, error) {
	query := r.db.
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Where("title = ? AND type = ?", title, taskType)

	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	} else {
		query = query.Where("parent_id IS NULL")
	}

	var task models.Task
	if err := query.First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks of an owner with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).
		Where("tasks.entity_type = ? AND tasks.entity_id = ?", filter.EntityType, filter.EntityID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.TaskStatusID != nil {
		query = query.Where("tasks.task_status_id = ?", *filter.TaskStatusID)
	}
	if filter.AssigneeID != nil {
		assigneeSubQuery := r.db.Model(&models.Assignee{}).
			Select("1").
			Where("assignees.task_id = tasks.id").
			Where("assignees.user_id = ?", *filter.AssigneeID).
			Where("assignees.deleted_at IS NULL")
		query = query.Where("EXISTS (?)", assigneeSubQuery)
	}
	if filter.ParentID != nil {
		query = query.Where("tasks.parent_id = ?", *filter.ParentID)
	} else if filter.RootsOnly {
		query = query.Where("tasks.parent_id IS NULL")
	}
	if filter.Search != "" {
		query = query.Where("LOWER(tasks.title) LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.
		Order("tasks.position ASC, tasks.created_at ASC").
		Scopes(database.Paginate(filter.Page, filter.PageSize))

	if err := listQuery.Preload("Creator").Preload("TaskStatus").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// NumberedForOwner returns the owner's assigned task numbers under a row
// lock, so two concurrent allocations cannot observe the same maximum.
func (r *GormTaskRepository) NumberedForOwner(entityType string, entityID uint64) ([]string, error) {
	// Soft-deleted tasks still hold their numbers; a deleted task's number
	// is never reissued.
	query := r.db.Unscoped().Model(&models.Task{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Where("task_number IS NOT NULL AND task_number != ''")

	// SQLite has no FOR UPDATE; its single-writer model serializes the
	// read-compute-write span on its own.
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var numbers []string
	if err := query.Pluck("task_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// MaxSiblingPosition returns the highest position among the children of
// parentID, or 0 when there are none
func (r *GormTaskRepository) MaxSiblingPosition(entityType string, entityID uint64, parentID *uint64) (int, error) {
	query := r.db.Model(&models.Task{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	} else {
		query = query.Where("parent_id IS NULL")
	}

	var max *int
	if err := query.Select("MAX(position)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// ListDependencyIDs returns the ids a task directly depends on
func (r *GormTaskRepository) ListDependencyIDs(taskID uint64) ([]uint64, error) {
	var ids []uint64
	if err := r.db.Model(&models.TaskDependency{}).
		Where("task_id = ?", taskID).
		Pluck("depends_on_task_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ReplaceDependencies replaces a task's dependency edge set wholesale
func (r *GormTaskRepository) ReplaceDependencies(taskID uint64, dependencyIDs []uint64) error {
	if err := r.db.Where("task_id = ?", taskID).
		Delete(&models.TaskDependency{}).Error; err != nil {
		return err
	}

	if len(dependencyIDs) == 0 {
		return nil
	}

	edges := make([]models.TaskDependency, len(dependencyIDs))
	for i, depID := range dependencyIDs {
		edges[i] = models.TaskDependency{
			TaskID:          taskID,
			DependsOnTaskID: depID,
		}
	}
	return r.db.Create(&edges).Error
}

// ReplaceAssignees replaces a task's assignee set wholesale
func (r *GormTaskRepository) ReplaceAssignees(taskID uint64, userIDs []uint64) error {
	if err := r.db.Where("task_id = ?", taskID).
		Delete(&models.Assignee{}).Error; err != nil {
		return err
	}

	if len(userIDs) == 0 {
		return nil
	}
	return r.AssignUsers(taskID, userIDs)
}

// AssignUsers assigns users to a task, reviving soft-deleted rows
func (r *GormTaskRepository) AssignUsers(taskID uint64, userIDs []uint64) error {
	assignees := make([]models.Assignee, len(userIDs))
	for i, userID := range userIDs {
		assignees[i] = models.Assignee{
			TaskID: taskID,
			UserID: userID,
		}
	}

	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"deleted_at": gorm.Expr("NULL")}),
		}).
		Create(&assignees).Error
}

// CountAssignees counts current assignees of a task
func (r *GormTaskRepository) CountAssignees(taskID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Assignee{}).
		Where("task_id = ?", taskID).
		Count(&count).Error
	return count, err
}

// Delete removes a task along with its assignee rows and dependency edges
// in both directions
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Assignee{}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id = ? OR depends_on_task_id = ?", id, id).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}
