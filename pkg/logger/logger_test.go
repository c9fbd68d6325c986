package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresLevel(t *testing.T) {
	t.Cleanup(Replace(zap.NewNop()))

	require.NoError(t, Init(Options{Level: "debug"}))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init(Options{Level: "not-a-level", Format: "console"}))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	t.Cleanup(Replace(zap.NewNop()))

	before := Logger()
	require.Error(t, Init(Options{Format: "xml"}))
	require.Same(t, before, Logger())
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	WithModule("pipeline").Info("stage moved", zap.String("lead", "l-1"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "pipeline", entries[0].ContextMap()["module"])
	require.Equal(t, "l-1", entries[0].ContextMap()["lead"])
}

func TestReplaceRestoresPrevious(t *testing.T) {
	original := Logger()
	restore := Replace(nil)
	require.NotSame(t, original, Logger())
	restore()
	require.Same(t, original, Logger())
}
