package internal

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"schoolinfra/internal/errors"
)

// LogConfig selects verbosity and encoding for the process logger
type LogConfig struct {
	Level  string
	Format string
}

// NewLogger builds a zap logger for the given configuration.
// Level names are case-insensitive; the legacy TRACE level maps to debug.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	levelName := strings.ToLower(strings.TrimSpace(cfg.Level))
	if levelName == "trace" {
		levelName = "debug"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger, nil
}

// InitLogger builds the logger and installs it as the zap global
func InitLogger(cfg LogConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// LogError logs err with its captured stack trace at error level
func LogError(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err), zap.String("stack", errors.StackTrace(err)))
	zap.L().Error(msg, fields...)
}
