package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/ppgcollect/internal/logger"
)

func TestInitLoggerFallsBackOnInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	require.NoError(t, initLogger("loud", &buf))
	assert.Contains(t, buf.String(), "failed to initialize logger")

	logger.Warn().Msg("Backup incomplete")
	assert.Contains(t, buf.String(), "Backup incomplete")
}

func TestRunHelpExitsZero(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--help"}))
}
