package ui

import "log/slog"

// Logger forwards stage progress to a structured logger. It is the UI used
// for non-interactive runs where output is collected by another tool.
type Logger struct {
	log *slog.Logger
}

// Verify Logger satisfies UI at compile time.
var _ UI = (*Logger)(nil)

// NewLogger returns a Logger writing through l, or slog.Default() when l is nil.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l}
}

// StageStart logs the stage start at info level.
func (l *Logger) StageStart(stage string, total int) {
	l.log.Info("stage started", "stage", stage, "total", total)
}

// StageProgress logs each item at debug level.
func (l *Logger) StageProgress(stage string, done, total int, item string) {
	l.log.Debug("stage progress", "stage", stage, "done", done, "total", total, "item", item)
}

// StageDone logs the stage summary at info level.
func (l *Logger) StageDone(stage, summary string) {
	l.log.Info("stage done", "stage", stage, "summary", summary)
}

// Warn logs msg at warn level.
func (l *Logger) Warn(msg string) { l.log.Warn(msg) }

// Info logs msg at info level.
func (l *Logger) Info(msg string) { l.log.Info(msg) }

// Error logs msg at error level.
func (l *Logger) Error(msg string) { l.log.Error(msg) }
