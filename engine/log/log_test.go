package log_test

import (
	"testing"

	"github.com/on-the-ground/calcgraph_go/engine/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProduction_Levels(t *testing.T) {
	logger, err := log.NewProduction(log.LevelWarn)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	logger, err = log.NewDevelopment(log.LevelDebug)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewProduction_UnknownLevel(t *testing.T) {
	_, err := log.NewProduction(log.Level("loud"))
	assert.Error(t, err)
}

func TestNewTest_LogsDebug(t *testing.T) {
	logger := log.NewTest()
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	logger.Debug("hello")
}
