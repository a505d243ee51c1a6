// Package common provides centralized logging and error infrastructure for
// the TasteOS services. The logging system is built on logrus with custom
// output handling that routes error-level messages to stderr while sending
// other log levels to stdout, enabling proper stream separation for
// containerized and scripted environments.
package common

import (
	"bytes"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log lines to stdout or stderr based on
// their severity level. Error messages (containing "level=error") go to
// stderr so orchestrators and shell scripts can treat them with higher
// priority; everything else goes to stdout.
type OutputSplitter struct{}

// Write implements io.Writer. It inspects the formatted log line and picks
// the destination stream. Safe for concurrent use; both OS streams are
// thread-safe and no state is kept.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the global logger instance for all TasteOS services. It is
// pre-configured with the OutputSplitter; format and level are adjusted
// from configuration at startup via ConfigureLogger.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}

// ConfigureLogger applies the configured level and format to the global
// logger. Unknown values fall back to info/text.
func ConfigureLogger(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
