// Package db opens the journal database.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbmysql "github.com/kasuganosora/subwars/db/mysql"
	dbsqlite "github.com/kasuganosora/subwars/db/sqlite"
)

const (
	ModeMemory = "memory"
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Config selects and tunes the database.
type Config struct {
	Mode         string        `mapstructure:"mode"`
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	// Verbose logs every statement.
	Verbose bool `mapstructure:"verbose"`
}

// Open returns a *gorm.DB for the configured mode. Memory databases are
// private to the returned handle.
func Open(cfg Config) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeMemory:
		return dbsqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", cfg.Verbose)
	case ModeSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("db: create %s: %w", dir, err)
			}
		}
		return dbsqlite.Open(cfg.SQLitePath, cfg.Verbose)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		}, cfg.Verbose)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
