package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSetup(t *testing.T) {
	before := zap.L()

	undo, err := Setup("WARN", "json")
	require.NoError(t, err)
	assert.True(t, zap.L().Core().Enabled(zapcore.WarnLevel))
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	undo()
	assert.Same(t, before, zap.L())

	undo, err = Setup("debug", "")
	require.NoError(t, err)
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))
	undo()
}

func TestSetup_Invalid(t *testing.T) {
	_, err := Setup("loud", "json")
	assert.Error(t, err)
	_, err = Setup("info", "xml")
	assert.Error(t, err)
}
