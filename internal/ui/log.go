package ui

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger wraps charmbracelet/log for this tool's two output channels: the
// plain stack-tree/plan rendering (printed directly, never through this
// logger) and everything diagnostic (--debug leveled messages), the same
// separation the teacher keeps between its Splog rendering and the pack's
// schmux terminal logging.
type Logger struct {
	l *log.Logger
}

// NewLogger builds a Logger writing to stderr, so stdout stays reserved
// for plan/tree rendering that a script might pipe or diff.
func NewLogger(debug bool) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "stk",
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.WarnLevel)
	}
	return &Logger{l: l}
}

func (lg *Logger) Debug(msg string, kv ...any) { lg.l.Debug(msg, kv...) }
func (lg *Logger) Info(msg string, kv ...any)  { lg.l.Info(msg, kv...) }
func (lg *Logger) Warn(msg string, kv ...any)  { lg.l.Warn(msg, kv...) }
func (lg *Logger) Error(msg string, kv ...any) { lg.l.Error(msg, kv...) }
