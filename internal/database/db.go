package database

import (
	"fmt"
	"time"

	"creche-backend/internal/config"
	"creche-backend/internal/logging"
	"creche-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres, migrates the schema and creates the indexes
// AutoMigrate cannot express.
func Open(cfg *config.Config, logger *logging.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Child{},
		&models.Daycare{},
		&models.Photo{},
		&models.Enrollment{},
		&models.Review{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return ensureIndexes(db)
}

// ensureIndexes creates the partial unique index that keeps at most one
// accepted enrollment per (child, daycare).
func ensureIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollments_child_daycare_accepted
			ON enrollments (child_id, daycare_id) WHERE status = 'accepted'`,
		`CREATE INDEX IF NOT EXISTS idx_enrollments_user_daycare_status
			ON enrollments (user_id, daycare_id, status)`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}
