// Package dbtest opens an in-memory ledger database for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fatflowers/donorsync/internal/platform/db"
)

var seq atomic.Int64

// Open returns a migrated ledger database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", seq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// shared-cache memory databases report SQLITE_LOCKED on concurrent writers
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(zap.NewNop().Sugar(), gdb))
	t.Cleanup(func() { _ = db.Close(zap.NewNop().Sugar(), gdb) })
	return gdb
}
