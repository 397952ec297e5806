package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func init() {
	Log = logrus.New()
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetLevel(logrus.InfoLevel)
}

// SetLevel parses level and applies it, keeping the current level on bad input
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("Unknown log level %q, keeping %s", level, Log.GetLevel())
		return
	}
	Log.SetLevel(lvl)
}

// WithMessageID returns a logger with messageId field
func WithMessageID(messageID string) *logrus.Entry {
	return Log.WithField("messageId", messageID)
}

// WithConsumer returns a logger scoped to an analytics consumer
func WithConsumer(name string) *logrus.Entry {
	return Log.WithField("consumer", name)
}

// WithFields returns a logger with custom fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}
