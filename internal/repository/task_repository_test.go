package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pulseworks/pulse-tasks/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

// The number scan must hold a row lock on postgres so two concurrent
// allocations cannot observe the same maximum.
func TestNumberedForOwnerLocksRows(t *testing.T) {
	db, mock := openMockDB(t)

	rows := sqlmock.NewRows([]string{"task_number"}).
		AddRow("W1-T001").
		AddRow("W1-T002")
	mock.ExpectQuery(`SELECT "task_number" FROM "tasks" WHERE .* FOR UPDATE`).
		WithArgs(models.EntityTypePulse, uint64(42)).
		WillReturnRows(rows)

	numbers, err := NewTaskRepository(db).NumberedForOwner(models.EntityTypePulse, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"W1-T001", "W1-T002"}, numbers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Soft-deleted tasks keep their numbers, so the scan must not filter on
// deleted_at.
func TestNumberedForOwnerIncludesDeleted(t *testing.T) {
	db, mock := openMockDB(t)

	mock.ExpectQuery(`SELECT "task_number" FROM "tasks" WHERE entity_type = .* AND entity_id = .* AND \(task_number IS NOT NULL AND task_number != ''\) FOR UPDATE`).
		WithArgs(models.EntityTypePulse, uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"task_number"}))

	_, err := NewTaskRepository(db).NumberedForOwner(models.EntityTypePulse, 7)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
