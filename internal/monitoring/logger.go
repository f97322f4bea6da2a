package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the fitter and the
// CLI. It defaults to log.Printf; tests or callers may redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = Discard
		return
	}
	Logf = f
}

// Discard is a logger that drops everything.
func Discard(string, ...interface{}) {}

// Prefixed returns a logger that writes through the current package logger
// with a "[tag] " prefix. The package logger is looked up on every call, so
// a later SetLogger also affects loggers created earlier.
func Prefixed(tag string) func(format string, v ...interface{}) {
	prefix := "[" + tag + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

// OrDiscard returns f, or Discard when f is nil.
func OrDiscard(f func(format string, v ...interface{})) func(format string, v ...interface{}) {
	if f == nil {
		return Discard
	}
	return f
}
