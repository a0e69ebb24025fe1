package logger

type Level int8

const (
	Disabled   Level = -1   // Disabled is used for disabled logging.
	TraceLevel Level = iota // TraceLevel is used for detailed debugging information.
	DebugLevel              // DebugLevel is used for debugging information.
	InfoLevel               // InfoLevel is used for informational messages.
	WarnLevel               // WarnLevel is used for warning messages.
	ErrorLevel              // ErrorLevel is used for error messages.
	NoLevel                 // NoLevel is used for no logging level.
)

// Logger is the logging contract shared by the optimizers, the walk-forward
// validator and the CLI. Backends live in the zerolog and logrus subpackages.
type Logger interface {
	WithField(key string, value any) Logger  // WithField returns a logger with the given key-value pair.
	WithFields(fields map[string]any) Logger // WithFields returns a logger with the given fields.
	WithError(err error) Logger              // WithError returns a logger with the given error.

	Debug(args ...any) // Debug logs the message with the debug level.
	Info(args ...any)  // Info logs the message with the info level.
	Warn(args ...any)  // Warn logs the message with the warning level.
	Error(args ...any) // Error logs the message with the error level.

	Debugf(format string, args ...any) // Debugf formats and logs the message at debug level.
	Infof(format string, args ...any)  // Infof formats and logs the message at info level.
	Warnf(format string, args ...any)  // Warnf formats and logs the message at warning level.
	Errorf(format string, args ...any) // Errorf formats and logs the message at error level.

	SetLevel(level Level) // SetLevel sets the logging level for the logger.
	GetLevel() Level      // GetLevel returns the logging level for the logger.
}

// ParseLevel maps a textual level ("debug", "info", ...) to a Level.
func ParseLevel(level string) Level {
	switch level {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info", "":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "disabled", "off":
		return Disabled
	default:
		return NoLevel
	}
}

// OrNop returns log, or a discarding logger when log is nil.
func OrNop(log Logger) Logger {
	if log == nil {
		return Nop()
	}
	return log
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) WithField(string, any) Logger      { return n }
func (n nopLogger) WithFields(map[string]any) Logger  { return n }
func (n nopLogger) WithError(error) Logger            { return n }
func (nopLogger) Debug(...any)                        {}
func (nopLogger) Info(...any)                         {}
func (nopLogger) Warn(...any)                         {}
func (nopLogger) Error(...any)                        {}
func (nopLogger) Debugf(string, ...any)               {}
func (nopLogger) Infof(string, ...any)                {}
func (nopLogger) Warnf(string, ...any)                {}
func (nopLogger) Errorf(string, ...any)               {}
func (nopLogger) SetLevel(Level)                      {}
func (nopLogger) GetLevel() Level                     { return Disabled }
