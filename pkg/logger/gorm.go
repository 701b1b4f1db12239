package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// GormLogger routes GORM's SQL tracing through a Logger.
//
// Queries are logged at debug, slow queries at warn and failed queries at error.
// gorm.ErrRecordNotFound is never treated as a failure.
type GormLogger struct {
	log           Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger wraps l for use as gorm.Config.Logger. A zero slowThreshold
// disables slow query reporting.
func NewGormLogger(l Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		log:           l,
		level:         gormlogger.Info,
		slowThreshold: slowThreshold,
	}
}

// LogMode returns a copy of the logger filtering at level.
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Debug(ctx, fmt.Sprintf(msg, data...), String("caller", utils.FileWithLineNum()))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(ctx, fmt.Sprintf(msg, data...), String("caller", utils.FileWithLineNum()))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error(ctx, fmt.Sprintf(msg, data...), String("caller", utils.FileWithLineNum()))
	}
}

// Trace logs one executed statement.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error(ctx, "query failed",
			String("sql", sql),
			Int64("rows", rows),
			Duration("elapsed", elapsed),
			String("caller", utils.FileWithLineNum()),
			Error(err),
		)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn(ctx, "slow query",
			String("sql", sql),
			Int64("rows", rows),
			Duration("elapsed", elapsed),
			Duration("threshold", g.slowThreshold),
			String("caller", utils.FileWithLineNum()),
		)
	case g.level >= gormlogger.Info && g.log.Enabled(ctx, slog.LevelDebug):
		sql, rows := fc()
		g.log.Debug(ctx, "query",
			String("sql", sql),
			Int64("rows", rows),
			Duration("elapsed", elapsed),
		)
	}
}
