package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format is a log output format.
type Format string

const (
	Logfmt Format = "logfmt"
	JSON   Format = "json"
)

// ParseLevel accepts debug, info, warn(ing) and error in any case.
func ParseLevel(s string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logfmt":
		return Logfmt, nil
	case "json":
		return JSON, nil
	default:
		return Logfmt, fmt.Errorf("unknown log format %q", s)
	}
}

// New returns a logrus logger writing to out (stderr when nil).
//
// logfmt uses the text formatter without colors so the output stays
// key=value even on a terminal.
func New(out io.Writer, level logrus.Level, format Format) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	switch format {
	case JSON:
		logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{logrus.FieldKeyTime: "ts"},
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors:    true,
			FullTimestamp:    true,
			QuoteEmptyFields: true,
			FieldMap:         logrus.FieldMap{logrus.FieldKeyTime: "ts"},
		})
	}
	return logger
}

// FromStrings is New with level and format given as flag values. Unknown
// values fall back to info and logfmt; the returned error reports them.
func FromStrings(out io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, errLevel := ParseLevel(level)
	f, errFormat := ParseFormat(format)
	logger := New(out, lvl, f)
	if errLevel != nil {
		return logger, errLevel
	}
	return logger, errFormat
}
