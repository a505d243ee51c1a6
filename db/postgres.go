// Package db provides the persistence layer: a GORM/Postgres backend
// for sessions, events, recipes and density overrides, plus in-memory
// implementations of the same store interfaces for tests.
package db

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tasteos.dev/common"
)

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// NewPostgres opens the database and optionally migrates the schema.
func NewPostgres(opts PostgresOptions) (*gorm.DB, error) {
	if opts.URL == "" {
		return nil, common.Validationf("database url is required")
	}

	gdb, err := gorm.Open(postgres.Open(opts.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, common.Wrap(common.KindFatal, err, "open database")
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, common.Wrap(common.KindFatal, err, "database handle")
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if opts.AutoMigrate {
		if err := Migrate(gdb); err != nil {
			return nil, err
		}
	}
	return gdb, nil
}

// Migrate creates or updates the schema.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&SessionRow{},
		&EventRow{},
		&RecipeRow{},
		&DensityRow{},
	)
	if err != nil {
		return common.Wrap(common.KindFatal, err, "migrate schema")
	}
	return nil
}
