// Package logging builds the logger shared by the PAM helper and the PAM module.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

type Options struct {
	// Log file path, empty means stderr
	File string
	// Log level: error, warn, info, debug
	Level string
	// Stdout mirrors every line to stdout (test mode)
	Stdout bool
	// Output replaces stderr when no file is configured
	Output io.Writer
}

// Formatter writes "<timestamp> [PAM_OIDC:<level>] <message> key=value...".
type Formatter struct{}

func (Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	fmt.Fprintf(&b, "%s [PAM_OIDC:%s] %s", entry.Time.Format(timestampFormat), levelName(entry.Level), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}

func levelName(level logrus.Level) string {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "error"
	case logrus.WarnLevel:
		return "warn"
	case logrus.InfoLevel:
		return "info"
	default:
		return "debug"
	}
}

// ParseLevel maps the configured level name. Unknown names mean info.
func ParseLevel(name string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// New returns a logger and a function releasing its log file.
func New(opts Options) (*logrus.Logger, func() error, error) {
	var (
		out       io.Writer = os.Stderr
		closeFile           = func() error { return nil }
	)

	if opts.Output != nil {
		out = opts.Output
	}

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}

		out = file
		closeFile = file.Close
	}

	if opts.Stdout {
		out = io.MultiWriter(out, os.Stdout)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(Formatter{})
	logger.SetLevel(ParseLevel(opts.Level))

	return logger, closeFile, nil
}
