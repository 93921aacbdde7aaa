// Package logging provides named, leveled loggers for the application.
// Each package obtains its logger once via GetLogger and the log level
// can be adjusted globally or per logger at runtime.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Log Level Definition
// --------------------------------------------------------------------------

// LogLevel defines the verbosity of a logger. Higher levels include all
// messages of the lower levels.
type LogLevel int

const (
	ERROR LogLevel = iota
	WARNING
	INFO
	DEBUG
)

// ParseLevel converts a string level to a LogLevel.
// It returns an error for unknown levels.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "error":
		return ERROR, nil
	case "warning", "warn":
		return WARNING, nil
	case "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ILogger is the interface all named loggers implement
type ILogger interface {
	// SetLevel sets the verbosity of this logger
	SetLevel(level LogLevel)
	// Debugf logs a message at DEBUG level
	Debugf(format string, args ...interface{})
	// Infof logs a message at INFO level
	Infof(format string, args ...interface{})
	// Warningf logs a message at WARNING level
	Warningf(format string, args ...interface{})
	// Errorf logs a message at ERROR level
	Errorf(format string, args ...interface{})
}

// namedLogger implements the ILogger interface with custom formatting
type namedLogger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

// --------------------------------------------------------------------------
// Interface Methods (docu see ILogger)
// --------------------------------------------------------------------------

func (l *namedLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *namedLogger) Debugf(format string, args ...interface{}) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *namedLogger) Infof(format string, args ...interface{}) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *namedLogger) Warningf(format string, args ...interface{}) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *namedLogger) Errorf(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *namedLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

var registry = xsync.NewMapOf[string, *namedLogger]()

// GetLogger returns the logger registered under the given package name,
// creating it at INFO level on first use.
func GetLogger(pkgName string) ILogger {
	l, _ := registry.LoadOrCompute(pkgName, func() *namedLogger {
		return &namedLogger{
			name:   pkgName,
			level:  INFO,
			logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
		}
	})
	return l
}

// SetLevelAll sets the level of every registered logger
func SetLevelAll(level LogLevel) {
	registry.Range(func(_ string, l *namedLogger) bool {
		l.SetLevel(level)
		return true
	})
}
