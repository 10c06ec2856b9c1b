package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "assay"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName           = "output"
	verboseFlagName          = "verbose"
	parallelFlagName         = "parallel"
	testTimeoutFlagName      = "timeout"
	timeoutBudgetFlagName    = "timeout-budget"
	maxFaultsFlagName        = "max-faults"
	phaseBudgetFlagName      = "phase-budget"
	fallbackFractionFlagName = "fallback"
	fallbackTimeFlagName     = "fallback-time"
	execFlagName             = "exec"

	parallelConfigKey         = "synth.parallel"
	testTimeoutConfigKey      = "synth.test_timeout"
	timeoutBudgetConfigKey    = "synth.timeout_budget"
	maxFaultsConfigKey        = "synth.max_faults_per_test"
	phaseBudgetConfigKey      = "synth.phase_budget"
	fallbackFractionConfigKey = "synth.minimization_fallback"
	fallbackTimeConfigKey     = "synth.minimization_fallback_time"
	execConfigKey             = "synth.exec"

	defaultReportsDir       = ".assay-reports"
	defaultParallel         = 1
	defaultTestTimeout      = 5 * time.Second
	defaultTimeoutBudget    = 3
	defaultMaxFaults        = 0
	defaultPhaseBudget      = time.Duration(0)
	defaultFallbackFraction = 0.6
	defaultFallbackTime     = 0.5

	envPrefix = "ASSAY"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".assay.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(parallelConfigKey, defaultParallel)
	viper.SetDefault(testTimeoutConfigKey, defaultTestTimeout)
	viper.SetDefault(timeoutBudgetConfigKey, defaultTimeoutBudget)
	viper.SetDefault(maxFaultsConfigKey, defaultMaxFaults)
	viper.SetDefault(phaseBudgetConfigKey, defaultPhaseBudget)
	viper.SetDefault(fallbackFractionConfigKey, defaultFallbackFraction)
	viper.SetDefault(fallbackTimeConfigKey, defaultFallbackTime)
	viper.SetDefault(execConfigKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
