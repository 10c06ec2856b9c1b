package cmd

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "assay", configBaseName)
	assert.Equal(t, "assay.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "synth.parallel", parallelConfigKey)
	assert.Equal(t, "synth.timeout_budget", timeoutBudgetConfigKey)
	assert.Equal(t, ".assay-reports", defaultReportsDir)
	assert.Equal(t, "ASSAY", envPrefix)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, 1, viper.GetInt(parallelConfigKey))
	assert.Equal(t, 5*time.Second, viper.GetDuration(testTimeoutConfigKey))
	assert.Equal(t, 3, viper.GetInt(timeoutBudgetConfigKey))
	assert.Zero(t, viper.GetInt(maxFaultsConfigKey))
	assert.Zero(t, viper.GetDuration(phaseBudgetConfigKey))
	assert.InDelta(t, 0.6, viper.GetFloat64(fallbackFractionConfigKey), 1e-9)
	assert.InDelta(t, 0.5, viper.GetFloat64(fallbackTimeConfigKey), 1e-9)
	assert.Empty(t, viper.GetString(execConfigKey))
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	configureLogger(filepath.Join(t.TempDir(), "assay.log"), true)

	assert.Same(t, globalLogger, slog.Default())
	assert.True(t, globalLogger.Enabled(t.Context(), slog.LevelDebug))
}
