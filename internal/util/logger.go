package util

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var Logger *log.Logger

// getColoredPrefix returns a styled prefix with colors
func getColoredPrefix() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#0EA5E9")).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)
	return style.Render("anistream")
}

// InitLogger initializes the charmbracelet logger on stderr.
func InitLogger(debug bool) {
	InitLoggerTo(os.Stderr, debug)
}

// InitLoggerTo initializes the logger on w. Tests use it to capture output.
func InitLoggerTo(w io.Writer, debug bool) {
	SetDebugMode(debug)

	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          getColoredPrefix(),
	})

	Logger.SetColorProfile(termenv.TrueColor)
	if debug {
		Logger.SetLevel(log.DebugLevel)
		Logger.Debug("Debug logging enabled")
	} else {
		Logger.SetLevel(log.InfoLevel)
	}
}

// Debug logs a debug message (only when debug mode is enabled)
func Debug(msg interface{}, keyvals ...interface{}) {
	if IsDebug && Logger != nil {
		Logger.Debug(fmt.Sprintf("%v", msg), keyvals...)
	}
}

// Info logs an info message
func Info(msg interface{}, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(fmt.Sprintf("%v", msg), keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg interface{}, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(fmt.Sprintf("%v", msg), keyvals...)
	}
}

// Error logs an error message
func Error(msg interface{}, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(fmt.Sprintf("%v", msg), keyvals...)
	}
}

// Debugf logs a formatted debug message (only when debug mode is enabled)
func Debugf(format string, args ...interface{}) {
	if IsDebug && Logger != nil {
		Logger.Debug(fmt.Sprintf(format, args...))
	}
}
