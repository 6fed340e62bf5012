package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologProviderWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelDebug)

	logger := p.GetLoggerWithName("pipeline").With(ModelNameKey, "lgbm")
	logger.Info("Training finished", RMSEKey, 1.25, SamplesKey, 80)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Training finished", lines[0]["message"])
	assert.Equal(t, "pipeline", lines[0][ComponentKey])
	assert.Equal(t, "lgbm", lines[0][ModelNameKey])
	assert.Equal(t, 1.25, lines[0][RMSEKey])
	assert.Equal(t, float64(80), lines[0][SamplesKey])
}

func TestZerologProviderErrorField(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo)

	err := scierrors.NewUnknownModelError("svm", []string{"lgbm"})
	p.GetLogger().Error("dispatch failed", err, ModelNameKey, "svm")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0][ErrorKey], "unknown model")
	assert.Equal(t, "svm", lines[0][ModelNameKey])
	assert.NotEmpty(t, lines[0][StacktraceKey])
}

func TestZerologProviderLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelWarn)
	logger := p.GetLogger()

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])

	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetProviderRoutesWarnings(t *testing.T) {
	provider := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo))

	scierrors.Warn(scierrors.NewEarlyStoppingDisabledWarning("lgbm", "empty validation set"))

	assert.True(t, provider.Logger.ContainsMessage("early stopping disabled"))
	assert.True(t, provider.Logger.ContainsField(ComponentKey, "warnings"))
}

func TestTestLoggerWithSharesBuffer(t *testing.T) {
	logger := NewTestLogger(LevelInfo)
	child := logger.With(RunIDKey, "abc")

	child.Info("run started")
	logger.Debug("filtered")

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0][RunIDKey])
	assert.Equal(t, "INFO", entries[0]["level"])
}
