package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func observedGormLogger(slow time.Duration) (*zapGormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &zapGormLogger{log: zap.New(core), level: gormlogger.Warn, slow: slow}, logs
}

func TestGormLoggerTrace(t *testing.T) {
	l, logs := observedGormLogger(50 * time.Millisecond)
	query := func() (string, int64) { return "SELECT * FROM leads", 3 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), query, nil)
	require.Zero(t, logs.Len())

	l.Trace(ctx, time.Now(), query, gorm.ErrRecordNotFound)
	require.Zero(t, logs.Len())

	l.Trace(ctx, time.Now(), query, errors.New("no such table: leads"))
	l.Trace(ctx, time.Now().Add(-time.Second), query, nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "SELECT * FROM leads", entries[0].ContextMap()["sql"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "slow query", entries[1].Message)
}

func TestGormLoggerLogMode(t *testing.T) {
	l, logs := observedGormLogger(-1)

	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), func() (string, int64) { return "", 0 }, errors.New("boom"))
	require.Zero(t, logs.Len())

	verbose := l.LogMode(gormlogger.Info)
	verbose.Trace(context.Background(), time.Now().Add(-time.Hour), func() (string, int64) { return "SELECT 1", 1 }, nil)
	verbose.Info(context.Background(), "migrated %d tables", 9)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, "migrated 9 tables", entries[1].Message)
	require.Equal(t, gormlogger.Warn, l.level)
}
