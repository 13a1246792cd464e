package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/model"
)

// activeRowIndexes back the ledger invariants at the storage level. Both
// postgres and sqlite accept partial indexes in this form.
var activeRowIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS uq_room_assignments_active_bed " +
		"ON room_assignments (room_id, bed_number) WHERE status = 1",
	"CREATE UNIQUE INDEX IF NOT EXISTS uq_room_assignments_active_student " +
		"ON room_assignments (student_id) WHERE status = 1",
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	logMode := logger.Warn
	if cfg.LogSQL {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate creates the schema and the partial unique indexes on active ledger rows.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Building{},
		&model.Room{},
		&model.Student{},
		&model.Assignment{},
		&model.OperationLog{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	for _, ddl := range activeRowIndexes {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
