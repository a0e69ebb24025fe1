package zerolog

import (
	"fmt"

	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog.Logger through logger.Logger. Derived loggers
// are independent copies, so changing the level of one leaves the others
// untouched.
type Adapter struct {
	log zerolog.Logger
}

// NewAdapter wraps an existing zerolog logger.
func NewAdapter(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

func (z *Adapter) GetLevel() logger.Level     { return toLevel(z.log.GetLevel()) }
func (z *Adapter) SetLevel(level logger.Level) { z.log = z.log.Level(toZerologLevel(level)) }

func (z *Adapter) Debug(args ...any) { z.print(zerolog.DebugLevel, args) }
func (z *Adapter) Info(args ...any)  { z.print(zerolog.InfoLevel, args) }
func (z *Adapter) Warn(args ...any)  { z.print(zerolog.WarnLevel, args) }
func (z *Adapter) Error(args ...any) { z.print(zerolog.ErrorLevel, args) }

func (z *Adapter) Debugf(format string, args ...any) { z.printf(zerolog.DebugLevel, format, args) }
func (z *Adapter) Infof(format string, args ...any)  { z.printf(zerolog.InfoLevel, format, args) }
func (z *Adapter) Warnf(format string, args ...any)  { z.printf(zerolog.WarnLevel, format, args) }
func (z *Adapter) Errorf(format string, args ...any) { z.printf(zerolog.ErrorLevel, format, args) }

func (z *Adapter) WithError(err error) logger.Logger {
	return &Adapter{log: z.log.With().Err(err).Logger()}
}

func (z *Adapter) WithField(key string, value any) logger.Logger {
	return &Adapter{log: z.log.With().Interface(key, value).Logger()}
}

func (z *Adapter) WithFields(fields map[string]any) logger.Logger {
	return &Adapter{log: z.log.With().Fields(fields).Logger()}
}

// print skips formatting entirely when the level is filtered out.
func (z *Adapter) print(level zerolog.Level, args []any) {
	if event := z.log.WithLevel(level); event != nil {
		event.Msg(fmt.Sprint(args...))
	}
}

func (z *Adapter) printf(level zerolog.Level, format string, args []any) {
	if event := z.log.WithLevel(level); event != nil {
		event.Msgf(format, args...)
	}
}

var fromZerolog = map[zerolog.Level]logger.Level{
	zerolog.Disabled:   logger.Disabled,
	zerolog.NoLevel:    logger.NoLevel,
	zerolog.TraceLevel: logger.TraceLevel,
	zerolog.DebugLevel: logger.DebugLevel,
	zerolog.InfoLevel:  logger.InfoLevel,
	zerolog.WarnLevel:  logger.WarnLevel,
	zerolog.ErrorLevel: logger.ErrorLevel,
}

func toLevel(level zerolog.Level) logger.Level {
	if l, ok := fromZerolog[level]; ok {
		return l
	}
	return logger.NoLevel
}

func toZerologLevel(level logger.Level) zerolog.Level {
	for zl, l := range fromZerolog {
		if l == level {
			return zl
		}
	}
	return zerolog.NoLevel
}
