package db

import (
	"context"
	"database/sql"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/punchline/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Module provides the embedded SQLite database handle.
var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(registerHooks),
)

// Open opens the embedded database. The analytics store and the webhook
// dedupe table live in a single local file; a single process owns it.
func Open(cfg config.Config) (*gorm.DB, error) {
	path := cfg.DBPath
	if path == "" {
		path = "punchline.db"
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	tune(sqlDB)

	return gdb, nil
}

func tune(sqlDB *sql.DB) {
	// SQLite serializes writes anyway; keep the pool tiny.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
}

func registerHooks(lc fx.Lifecycle, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
}
