// Package db opens the relational store and keeps its schema in sync with
// the models.
package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tasktracker/internal/config"
	"tasktracker/internal/model"
)

// tables lists models in dependency order: parents before children.
func tables() []interface{} {
	return []interface{}{
		&model.User{},
		&model.UserRole{},
		&model.Task{},
		&model.Comment{},
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         newLogger(log.New(os.Stdout, "\r\n", log.LstdFlags)),
	}
}

// newLogger reports slow queries and failures. Lookups that find nothing
// are expected (404s, existence checks) and stay quiet.
func newLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  true,
	})
}

// Open connects to the database selected by cfg.DBDriver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return NewMySQL(cfg.MySQLDSN)
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}
}

// Migrate creates or updates all tables.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(tables()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	for _, stmt := range dialectStatements(gormDB.Dialector.Name()) {
		if err := gormDB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate %s: %w", gormDB.Dialector.Name(), err)
		}
	}
	return nil
}

// dialectStatements returns schema tweaks AutoMigrate cannot express.
// Emails compare byte-wise: SQLite does so by default, MySQL's default
// collations fold case and need a binary one.
func dialectStatements(dialect string) []string {
	switch dialect {
	case config.DriverMySQL:
		return []string{
			"ALTER TABLE users MODIFY email VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL",
		}
	default:
		return nil
	}
}

// Reset drops every table, children first. Missing tables are skipped.
func Reset(gormDB *gorm.DB) error {
	all := tables()
	for i := len(all) - 1; i >= 0; i-- {
		if !gormDB.Migrator().HasTable(all[i]) {
			continue
		}
		if err := gormDB.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
