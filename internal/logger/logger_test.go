package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevels(t *testing.T) {
	for _, tc := range []struct {
		name          string
		log           func(l *ZapLogger, msg string)
		expectedLevel zapcore.Level
	}{
		{"Debug", func(l *ZapLogger, msg string) { l.Debug(msg) }, zapcore.DebugLevel},
		{"Info", func(l *ZapLogger, msg string) { l.Info(msg) }, zapcore.InfoLevel},
		{"Warn", func(l *ZapLogger, msg string) { l.Warn(msg) }, zapcore.WarnLevel},
		{"Error", func(l *ZapLogger, msg string) { l.Error(msg) }, zapcore.ErrorLevel},
		{"DebugWithContext", func(l *ZapLogger, msg string) { l.DebugWithContext(context.Background(), msg) }, zapcore.DebugLevel},
		{"WarnWithContext", func(l *ZapLogger, msg string) { l.WarnWithContext(context.Background(), msg) }, zapcore.WarnLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			dut := &ZapLogger{zap.New(core)}

			tc.log(dut, "ABC")

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			require.Equal(t, "ABC", entry.Message)
			require.Equal(t, tc.expectedLevel, entry.Level)
		})
	}
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dut := &ZapLogger{zap.New(core)}

	dut.With(zap.String("entity", "User"))
	dut.Info("fetched")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, map[string]interface{}{"entity": "User"}, logs.All()[0].ContextMap())
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		for _, level := range []string{"debug", "info", "warn", "error", "none"} {
			l, err := NewLogger(format, level)
			require.NoError(t, err, "%s/%s", format, level)
			require.NotNil(t, l)
		}
	}

	_, err := NewLogger("json", "verbose")
	require.ErrorContains(t, err, "unknown log level")

	_, err = NewLogger("xml", "info")
	require.ErrorContains(t, err, "unknown log format")

	require.Panics(t, func() { MustNewLogger("json", "verbose") })
}
