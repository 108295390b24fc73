package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. InitLogger must run before
// anything else so every line carries the service prefix.
var Logger = logrus.New()

// appNameHook prefixes each entry with the service name, keeping
// lines attributable when several processes share a log stream.
type appNameHook struct {
	name string
}

func (h *appNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.name + "] " + entry.Message
	return nil
}

// InitLogger configures the shared logger: stdout, level from
// LOG_LEVEL, full-timestamp text output.
func InitLogger(appName string) {
	Logger.SetOutput(os.Stdout)
	Logger.SetLevel(levelFromEnv())
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Logger.AddHook(&appNameHook{name: appName})
}

func levelFromEnv() logrus.Level {
	raw := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		Logger.Warnf("Invalid LOG_LEVEL %q, defaulting to info", raw)
		return logrus.InfoLevel
	}
	return level
}
