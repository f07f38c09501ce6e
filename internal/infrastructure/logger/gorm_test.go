package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func stmt(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_LogModeReturnsCopy(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	changed, ok := gl.LogMode(gormlogger.Error).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
	assert.Equal(t, gormlogger.Error, changed.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-db")

	t.Run("error", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Warn)
		gl.Trace(ctx, time.Now(), stmt("UPDATE applications", 0), errors.New("deadlock"))
		entry := findEntry(t, logs, "SQL Error")
		assert.Equal(t, "req-db", entry.ContextMap()["request_id"])
		assert.Equal(t, "deadlock", entry.ContextMap()["error"])
	})

	t.Run("record not found ignored", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		gl.Trace(ctx, time.Now(), stmt("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Zero(t, logs.Len())
	})

	t.Run("record not found logged when configured", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info, WithIgnoreRecordNotFoundError(false))
		gl.Trace(ctx, time.Now(), stmt("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
	})

	t.Run("slow", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(ctx, time.Now().Add(-time.Second), stmt("SELECT * FROM leases", 3), nil)
		entry := findEntry(t, logs, "Slow SQL")
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, int64(3), entry.ContextMap()["rows"])
	})

	t.Run("info logs at debug", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		gl.Trace(ctx, time.Now(), stmt("SELECT 1", 1), nil)
		assert.Equal(t, zapcore.DebugLevel, findEntry(t, logs, "SQL Query").Level)
	})

	t.Run("warn level hides fast queries", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Warn)
		gl.Trace(ctx, time.Now(), stmt("SELECT 1", 1), nil)
		assert.Zero(t, logs.Len())
	})

	t.Run("silent", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Silent)
		gl.Trace(ctx, time.Now(), stmt("SELECT 1", 1), errors.New("x"))
		assert.Zero(t, logs.Len())
	})
}

func TestGormLogger_Messages(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn)
	ctx := context.Background()
	gl.Info(ctx, "info %d", 1)
	gl.Warn(ctx, "warn %d", 2)
	gl.Error(ctx, "error %d", 3)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "warn 2", logs.All()[0].Message)
	assert.Equal(t, "error 3", logs.All()[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
