package core

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by every package for consistent logging
// across the stack. A nil Logger disables logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
