package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by list and cascade queries
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Active tasks of a project (project deactivation, derived workers)
		{"tasks", "idx_tasks_project_active", "project_id, active"},

		// Active projects managed by a user (user deactivation guard)
		{"projects", "idx_projects_manager_active", "manager_id, active"},

		// Login lookup among active users
		{"users", "idx_users_login_active", "login, active"},

		// Worklog listing by recency
		{"work_logs", "idx_work_logs_log_date", "log_date"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// MigrateDatabase runs the migrations AutoMigrate does not cover
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
