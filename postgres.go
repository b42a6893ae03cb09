package main

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	pkglog "wtfSocial/log"
)

// DB provides the SQL connection behind the gorm tree backend.
type DB struct {
	// Object-relational mapping.
	Gorm *gorm.DB
	// Driver is "postgres" or "sqlite".
	Driver string
	// Connection info string: a postgres dsn or a sqlite file path.
	ConnectionInfo string
}

// NewDB returns a new instance of DB.
func NewDB(driver, connectionInfo string) *DB {
	return &DB{
		Driver:         driver,
		ConnectionInfo: connectionInfo,
	}
}

// Open opens a new database connection. It also configures logging
// based on whether we're in development or in production.
func Open(db *DB, isProd bool) (err error) {
	if db.ConnectionInfo == "" {
		return fmt.Errorf("connectionInfo required")
	}

	// gorm logs through zerolog; only slow queries and errors in production.
	gormLog := pkglog.L().With().Str("source", "gorm").Logger()
	level := logger.Info
	if isProd {
		level = logger.Warn
	}
	cfg := &gorm.Config{
		Logger: logger.New(&gormLog, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	}

	switch db.Driver {
	case "postgres":
		db.Gorm, err = gorm.Open(postgres.Open(db.ConnectionInfo), cfg)
	case "sqlite":
		db.Gorm, err = gorm.Open(sqlite.Open(db.ConnectionInfo), cfg)
	default:
		return fmt.Errorf("unknown sql driver %q", db.Driver)
	}
	if err != nil {
		return fmt.Errorf("err opening gorm %s connection: %w", db.Driver, err)
	}

	if db.Driver == "sqlite" {
		// sqlite allows a single writer.
		sqlDB, err := db.Gorm.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return nil
}

// DestructiveReset drops the tree table. It is recreated when the tree is opened.
func DestructiveReset(db *DB) error {
	return db.Gorm.Migrator().DropTable("tree_nodes")
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDb, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
