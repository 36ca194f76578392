package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel "debug", "info", "warn" or "error"; anything else is info.
func ParseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil || l < zapcore.DebugLevel || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

// NewLogger builds the service logger.
// format: "json" (default) or "console".
// serviceName is attached as service_name when non-empty, hostname always.
func NewLogger(level string, format string, serviceName string) (*zap.Logger, error) {
	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		// stdout so container log collectors pick it up
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	fields := []zap.Field{}
	if serviceName != "" {
		fields = append(fields, zap.String("service_name", serviceName))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		fields = append(fields, zap.String("hostname", hostname))
	}
	return config.Build(zap.Fields(fields...))
}

// NewCLILogger console logger on stderr, keeping stdout for command output.
func NewCLILogger(level string) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.OutputPaths = []string{"stderr"}
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.EncoderConfig.TimeKey = ""
	return config.Build()
}
