package event

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogLevel indicates the severity of an Event.
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// LogLevels is the complete list of valid LogLevels
var LogLevels = []LogLevel{DEBUG, INFO, WARN, ERROR}

// ParseLogLevel converts a case-insensitive level name, returning INFO if it is not recognized.
func ParseLogLevel(s string) LogLevel {
	l := LogLevel(strings.ToUpper(strings.TrimSpace(s)))
	if l.IsValid() {
		return l
	}
	return INFO
}

// IsValid returns true if the supplied LogLevel is recognized
func (l LogLevel) IsValid() bool {
	for _, v := range LogLevels {
		if l == v {
			return true
		}
	}
	return false
}

// Zerolog returns the matching structured logging level.
func (l LogLevel) Zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
