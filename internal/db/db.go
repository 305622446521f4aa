package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-backend/config"
	"parking-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
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

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if err := seedAdmin(db); err != nil {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate runs the schema migrations for every entity. Exposed so
// tests can migrate an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Lot{},
		&model.Spot{},
		&model.Reservation{},
		&model.ExportJob{},
		&model.PushSubscription{},
	)
}

// seedAdmin makes sure at least one admin user exists.
func seedAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := model.User{
		Username: "admin",
		Email:    "admin@parkingapp.com",
		Role:     "admin",
		IsActive: true,
	}
	log.Println("No admin user found, creating default admin")
	return db.Create(&admin).Error
}
