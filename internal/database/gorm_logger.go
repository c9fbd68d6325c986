package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/charlesng35/leadflow/pkg/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// zapGormLogger routes gorm's SQL logging through the application logger.
// Failed statements log at error, slow ones at warn and the rest at debug.
type zapGormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(slow time.Duration) gormlogger.Interface {
	if slow == 0 {
		slow = defaultSlowQueryThreshold
	}
	return &zapGormLogger{
		log:   logger.WithModule("database").WithOptions(zap.AddCallerSkip(3)),
		level: gormlogger.Warn,
		slow:  slow,
	}
}

func (l *zapGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cpy := *l
	cpy.level = level
	return &cpy
}

func (l *zapGormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *zapGormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		query, rows := fc()
		l.log.Error("query failed", zap.Error(err), zap.Duration("elapsed", elapsed), zap.String("sql", query), zap.Int64("rows", rows))
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		query, rows := fc()
		l.log.Warn("slow query", zap.Duration("elapsed", elapsed), zap.Duration("threshold", l.slow), zap.String("sql", query), zap.Int64("rows", rows))
	case l.level >= gormlogger.Info:
		query, rows := fc()
		l.log.Debug("query", zap.Duration("elapsed", elapsed), zap.String("sql", query), zap.Int64("rows", rows))
	}
}
