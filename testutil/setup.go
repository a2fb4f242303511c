package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kasuganosora/subwars/cache"
	dbadapter "github.com/kasuganosora/subwars/db"
	"github.com/kasuganosora/subwars/model"
)

// SetupTestDB opens a private in-memory SQLite database and migrates it.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(dbadapter.Config{Mode: dbadapter.ModeMemory})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates an in-process store and pub/sub.
func SetupTestCache(t *testing.T) (cache.Store, cache.PubSub) {
	t.Helper()
	cfg := cache.Config{}
	s, err := cache.NewStore(cfg)
	require.NoError(t, err, "SetupTestCache: NewStore")
	t.Cleanup(func() { _ = s.Close() })
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return s, ps
}
