package database

import (
	"gorm.io/gorm"
)

// Paginate applies 1-based page windowing to a GORM query. Non-positive
// values leave the query unpaged.
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page <= 0 || pageSize <= 0 {
			return db
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
