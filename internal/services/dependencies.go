package services

import (
	"errors"
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrSelfDependency        = errors.New("a task cannot depend on itself")
	ErrDependencyNotFound    = errors.New("one or more dependency tasks not found")
	ErrCrossEntityDependency = errors.New("task dependencies must be within the same entity")
	ErrCircularDependency    = errors.New("adding this dependency would create a circular chain")
)

// DependencyValidator checks and applies a task's full dependency edge set.
// Validation runs against the edges as committed before the current
// transaction, so a half-applied set is never visible.
type DependencyValidator struct{}

// ValidateAndSync validates the proposed dependency set for task and, if
// every edge passes, replaces the stored set wholesale. Checks run in
// order; the first failure wins and nothing is written.
func (v DependencyValidator) ValidateAndSync(tx *gorm.DB, task *models.Task, dependencyIDs []uint64) error {
	repo := repository.NewTaskRepository(tx)

	for _, depID := range dependencyIDs {
		if depID == task.ID {
			return ErrSelfDependency
		}
	}

	dependencies, err := repo.FindByIDs(dependencyIDs)
	if err != nil {
		return fmt.Errorf("failed to load dependency tasks: %w", err)
	}
	if len(dependencies) != len(uniqueUint64(dependencyIDs)) {
		return ErrDependencyNotFound
	}

	byID := make(map[uint64]*models.Task, len(dependencies))
	for i := range dependencies {
		dep := &dependencies[i]
		if !task.SameOwner(dep) {
			return fmt.Errorf("%w: task %q belongs to a different entity", ErrCrossEntityDependency, dep.Title)
		}
		byID[dep.ID] = dep
	}

	for _, depID := range dependencyIDs {
		cyclic, err := v.wouldCreateCycle(repo, task.ID, depID)
		if err != nil {
			return fmt.Errorf("failed to traverse dependency graph: %w", err)
		}
		if cyclic {
			return fmt.Errorf("%w with task %q", ErrCircularDependency, byID[depID].Title)
		}
	}

	if err := repo.ReplaceDependencies(task.ID, dependencyIDs); err != nil {
		return fmt.Errorf("failed to sync dependencies: %w", err)
	}
	return nil
}

// wouldCreateCycle reports whether depID already depends, directly or
// transitively, on taskID. It walks the committed edge set breadth-first
// with a visited set, so diamonds terminate and the graph may be
// arbitrarily large.
func (v DependencyValidator) wouldCreateCycle(repo repository.TaskRepository, taskID, depID uint64) (bool, error) {
	visited := make(map[uint64]struct{})
	queue := []uint64{depID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == taskID {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		next, err := repo.ListDependencyIDs(current)
		if err != nil {
			return false, err
		}
		queue = append(queue, next...)
	}

	return false, nil
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
