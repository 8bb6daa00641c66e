package logger

import "codeberg.org/mutker/ppgcollect/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
}

// Default returns a Logger backed by the package-level logger.
func Default() Logger {
	return packageLogger{}
}

type packageLogger struct{}

func (packageLogger) Debug() *LogEvent { return Debug() }

func (packageLogger) Info() *LogEvent { return Info() }

func (packageLogger) Warn() *LogEvent { return Warn() }

func (packageLogger) Error() *LogEvent { return Error() }

func (packageLogger) ErrorWithCode(err errors.Error) *LogEvent { return ErrorWithCode(err) }
