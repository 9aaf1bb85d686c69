package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLevel(t *testing.T) {
	InitLogger(Config{
		Level:      InfoLevel,
		OutputPath: filepath.Join(t.TempDir(), "test.log"),
		FileOnly:   true,
	})

	SetLevel(WarnLevel)
	assert.Equal(t, WarnLevel, Level())

	SetLevel("ERROR")
	assert.Equal(t, ErrorLevel, Level())

	SetLevel("bogus")
	assert.Equal(t, DebugLevel, Level(), "unknown levels fall back to debug")

	// Logging after init must not panic at any level.
	Debug("debug", String("k", "v"))
	Info("info", Int("n", 1))
	Warn("warn", Bool("b", true))
	Error("error", ErrorField(assert.AnError))
}

func TestLogging_BeforeInitIsNoop(t *testing.T) {
	// The package-level helpers tolerate a nil logger; nothing to assert
	// beyond the absence of a panic.
	assert.NotPanics(t, func() { Info("ignored") })
}

func TestFatal_GoesThroughZap(t *testing.T) {
	saved := globalLogger
	t.Cleanup(func() { globalLogger = saved })

	core, logs := observer.New(zapcore.DebugLevel)
	globalLogger = zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic))

	assert.Panics(t, func() { Fatal("boom", String("k", "v")) })
	entries := logs.FilterMessage("boom").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.FatalLevel, entries[0].Level)
	}
}
