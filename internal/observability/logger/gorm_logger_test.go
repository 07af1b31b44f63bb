package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	ctx := context.Background()
	query := func() (string, int64) { return "WITH x AS (SELECT 1) UPDATE users SET name = ?", 1 }
	l := NewGormLogger(DefaultGormLoggerConfig())

	l.Trace(ctx, time.Now(), query, nil)
	assert.Equal(t, 0, logs.Len(), "fast queries stay quiet at warn level")

	l.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(ctx, time.Now(), query, errors.New("deadlock"))
	l.Trace(ctx, time.Now().Add(-time.Second), query, nil)
	entries := logs.TakeAll()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "UPDATE", entries[0].ContextMap()["operation"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}

	l.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), query, errors.New("ignored"))
	assert.Equal(t, 0, logs.Len())
}
