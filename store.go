package main

import (
	"fmt"

	"wtfSocial/database"
	pkglog "wtfSocial/log"
)

// openTree opens the tree backend selected by c.Store.Driver.
// reset drops existing SQL data first and is refused in production.
func openTree(c Config, reset bool) (database.Tree, error) {
	logger := pkglog.L().With().Str("driver", c.Store.Driver).Logger()

	switch c.Store.Driver {
	case "memory":
		logger.Warn().Msg("using the in-memory store, data is lost on exit")
		return database.NewMemoryTree(), nil

	case "redis":
		tree, err := database.NewRedisTree(c.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("address", c.Redis.Address).Msg("connected to redis")
		return tree, nil

	case "postgres", "sqlite":
		info := c.Database.ConnectionInfo()
		if c.Store.Driver == "sqlite" {
			info = c.Store.SQLitePath
		}
		db := NewDB(c.Store.Driver, info)
		if err := Open(db, c.IsProd()); err != nil {
			return nil, err
		}
		if reset {
			if c.IsProd() {
				Close(db)
				return nil, fmt.Errorf("refusing to reset the database in production")
			}
			if err := DestructiveReset(db); err != nil {
				Close(db)
				return nil, err
			}
			logger.Warn().Msg("database reset")
		}
		tree, err := database.NewGormTree(db.Gorm)
		if err != nil {
			Close(db)
			return nil, err
		}
		return tree, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}
