package model

import "gorm.io/gorm"

// allModels lists every model to be auto-migrated. Domain data lives in the
// table store; the database only holds the audit trail.
var allModels = []interface{}{
	&AuditLog{},
}

// AutoMigrate creates or updates all tables in the given database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels...)
}
