// Package logging holds the process-wide logger shared by the server and
// the command line tool.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// GlobalLogger writes to stderr so stdout stays free for tool output and the
// MCP stdio transport.
var GlobalLogger = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Init sets the level of GlobalLogger from a name such as "debug" or "warn".
// Unknown names leave the level at info and return the parse error.
func Init(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		GlobalLogger.SetLevel(logrus.InfoLevel)
		return err
	}
	GlobalLogger.SetLevel(lvl)
	return nil
}

// SetOutput redirects GlobalLogger, mainly for tests.
func SetOutput(w io.Writer) {
	GlobalLogger.SetOutput(w)
}
