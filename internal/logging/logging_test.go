package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"", logrus.InfoLevel},
		{"chatty", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level, "json", "stderr")
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
			assert.Equal(t, os.Stderr, logger.Out)
		})
	}
}

func TestNew_FileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "triage.log")

	logger, err := New("info", "json", path)
	require.NoError(t, err)
	logger.WithField("risk_score", 25).Info("Clinical analysis completed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "Clinical analysis completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(25), entry["risk_score"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_TextFormat(t *testing.T) {
	logger, err := New("info", "text", "stdout")
	require.NoError(t, err)
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("dropped")
	assert.NotEqual(t, os.Stdout, logger.Out)
}
