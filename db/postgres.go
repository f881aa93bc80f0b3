// api/db/postgres.go
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/casaflow/api/config"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
)

var Postgres *gorm.DB

// InitPostgres opens the relational store that holds notification records and
// runs the schema migration for them.
func InitPostgres() error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.GetString("postgres.host"),
		config.GetString("postgres.port"),
		config.GetString("postgres.user"),
		config.GetString("postgres.password"),
		config.GetString("postgres.name"),
		config.GetString("postgres.sslmode"),
	)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := Migrate(gormDB); err != nil {
		return err
	}

	Postgres = gormDB
	logger.Info("Successfully connected to Postgres")
	return nil
}

// Migrate applies the notification schema. Exported so tests can run it
// against an in-memory database.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(&model.Notification{}); err != nil {
		return fmt.Errorf("failed to migrate notification schema: %w", err)
	}
	return nil
}

func ClosePostgres() {
	if Postgres == nil {
		return
	}
	sqlDB, err := Postgres.DB()
	if err != nil {
		logger.Error("Error resolving Postgres connection for close")
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing Postgres connection")
	}
}
