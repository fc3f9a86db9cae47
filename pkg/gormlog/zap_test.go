package gormlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObserved(opts ...Option) (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return New(zap.New(core).Sugar(), opts...), logs
}

func TestShortCaller(t *testing.T) {
	require.Equal(t, "internal/platform/db/postgres.go:38", shortCaller("/Users/alex/repo/internal/platform/db/postgres.go:38"))
	require.Equal(t, "pkg/x/y.go:12", shortCaller(`/c/repo/project/pkg/x/y.go:12`))
	require.Equal(t, "a/b/c.go:1", shortCaller("/z/a/b/c.go:1"))
	require.Equal(t, "", shortCaller(""))
}

func TestTrace_LevelsAndSource(t *testing.T) {
	z, logs := newObserved(WithSource("givewp"), WithSlowThreshold(time.Millisecond))

	z.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	z.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 2", 1 }, nil)
	z.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 3", 0 }, errors.New("boom"))
	z.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 4", 0 }, gormlogger.ErrRecordNotFound)

	entries := logs.All()
	require.Len(t, entries, 4)
	require.Equal(t, "gorm", entries[0].Message)
	require.Equal(t, "gorm_slow", entries[1].Message)
	require.Equal(t, "gorm_trace", entries[2].Message)
	require.Equal(t, "gorm", entries[3].Message)
	require.Equal(t, "givewp", entries[0].ContextMap()["db"])
}

func TestTrace_WarnLevelDropsInfo(t *testing.T) {
	z, logs := newObserved(WithLevel(gormlogger.Warn))
	z.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	z.Info(context.Background(), "hello")
	require.Equal(t, 0, logs.Len())

	silent := z.LogMode(gormlogger.Silent)
	silent.Error(context.Background(), "nope")
	require.Equal(t, 0, logs.Len())
}
