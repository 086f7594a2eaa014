package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amarjeet4296/hcn-email-management/internal/config"
)

// Log is the process-wide logger
var Log = logrus.New()

// Init configures level and formatter from the application config.
func Init(cfg *config.Config) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	switch strings.ToLower(cfg.Environment) {
	case "production", "staging":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	Log.Debugf("Logger initialized: level=%s environment=%s", Log.GetLevel(), cfg.Environment)
}

// Silence discards all output. Used by tests and the CLI's quiet paths.
func Silence() {
	Log.SetOutput(io.Discard)
}

// WithModule returns an entry tagged with the component name
func WithModule(module string) *logrus.Entry {
	return Log.WithField("module", module)
}
