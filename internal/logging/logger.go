// Package logging decouples the application from a concrete logging framework.
// Components receive a Logger through their constructors; production code wires
// the logrus-backed adapter and tests wire MockLogger.
package logging

// Logger is the structured logger used throughout the application.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError returns a derived logger carrying err.
	WithError(err error) Logger

	// WithField returns a derived logger carrying a single key/value.
	WithField(key string, value interface{}) Logger

	// WithFields returns a derived logger carrying all fields.
	WithFields(fields ...Field) Logger

	// Fatal logs and exits the process. Only the CLI layer should call it.
	Fatal(msg string, fields ...Field)

	// Fatalf is the formatted variant of Fatal.
	Fatalf(msg string, args ...interface{})
}

// Field is a key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field inline.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
