package logger

import "sync/atomic"

type holder struct{ Logger }

var defLogger atomic.Pointer[holder]

func init() {
	defLogger.Store(&holder{NewSlog(InfoLevel, false)})
}

func current() Logger { return defLogger.Load().Logger }

// Debug logs to the default logger.
func Debug(msg string, keysAndValues ...any) { current().Debug(msg, keysAndValues...) }

// Info logs to the default logger.
func Info(msg string, keysAndValues ...any) { current().Info(msg, keysAndValues...) }

// Warn logs to the default logger.
func Warn(msg string, keysAndValues ...any) { current().Warn(msg, keysAndValues...) }

// Error logs to the default logger.
func Error(msg string, keysAndValues ...any) { current().Error(msg, keysAndValues...) }

// Fatal logs to the default logger and exits.
func Fatal(msg string, keysAndValues ...any) { current().Fatal(msg, keysAndValues...) }

// SetLevel changes the level of the default logger.
func SetLevel(level LogLevel) {
	current().SetLevel(level)
}

// SetLogger replaces the default logger returned by GetLogger. A nil l is ignored.
//
// Clients and transports capture the default logger when they are opened, so replace it
// during start-up, before any instrument is opened.
func SetLogger(l Logger) {
	if l != nil {
		defLogger.Store(&holder{l})
	}
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	return current()
}

// With returns the default logger with keyValues attached to every record.
func With(keyValues ...any) Logger {
	return current().With(keyValues...)
}
