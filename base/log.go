package base

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	logger     *log.Logger
	loggerOnce sync.Once
)

func defaultLogger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    false,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "vkexamples",
		})
	})
	return logger
}

// SetLogLevel adjusts the global log level ("debug", "info", "warn", "error").
// Unknown values fall back to info.
func SetLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	defaultLogger().SetLevel(parsed)
}

func LogDebug(msg interface{}, keyvals ...interface{}) {
	defaultLogger().Debug(msg, keyvals...)
}

func LogInfo(msg interface{}, keyvals ...interface{}) {
	defaultLogger().Info(msg, keyvals...)
}

func LogWarn(msg interface{}, keyvals ...interface{}) {
	defaultLogger().Warn(msg, keyvals...)
}

func LogError(msg interface{}, keyvals ...interface{}) {
	defaultLogger().Error(msg, keyvals...)
}

func LogFatal(msg interface{}, keyvals ...interface{}) {
	defaultLogger().Fatal(msg, keyvals...)
}
