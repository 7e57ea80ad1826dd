package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhub/pkg/config"
)

// Connect opens the PostgreSQL connection and configures the pool.
// The handle is passed explicitly to every component; there is no package-level instance.
func Connect(dbConfig *config.DBConfig) (*gorm.DB, error) {
	pgConfig := postgres.Config{
		DSN:                  dbConfig.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         logger.Default.LogMode(dbConfig.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database object: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

// Migrate runs migrations for the provided models and creates the indexes
// AutoMigrate cannot express.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	// At most one open impersonation log per admin. Backstop for the advisory
	// lock taken on start; a violation surfaces as a duplicate-key error.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_impersonation_active
		 ON impersonation_logs (admin_id) WHERE ended_at IS NULL`,
	).Error; err != nil {
		return fmt.Errorf("create impersonation exclusivity index: %w", err)
	}

	return nil
}
