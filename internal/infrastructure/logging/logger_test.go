package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewFromAppliesConfiguredLevel(t *testing.T) {
	logger := NewFrom("debug", false)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger = NewFrom("warn", false)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewFromFallsBackOnBadLevel(t *testing.T) {
	logger := NewFrom("verbose", false)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewFromEmptyLevelUsesModeDefault(t *testing.T) {
	logger := NewFrom("", false)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger = NewFrom("", true)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
