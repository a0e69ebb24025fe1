package zerolog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/raykavin/paramwalk/pkg/logger"
	"github.com/rs/zerolog"
)

// Options configures a zerolog backed logger.
type Options struct {
	Level      string    // trace, debug, info, warn, error, off
	TimeLayout string    // console timestamp layout, time.DateTime by default
	Colored    bool      // colourise console output
	JSON       bool      // emit JSON lines instead of console output
	Output     io.Writer // defaults to os.Stderr
}

// New builds a zerolog logger from options.
func New(opts Options) (*Adapter, error) {
	level := toZerologLevel(logger.ParseLevel(strings.ToLower(opts.Level)))
	if level == zerolog.NoLevel {
		return nil, fmt.Errorf("invalid log level %q", opts.Level)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = consoleWriter(out, opts.TimeLayout, opts.Colored)
	}

	return NewAdapter(zerolog.New(out).Level(level).With().Timestamp().Logger()), nil
}

func consoleWriter(out io.Writer, layout string, colored bool) zerolog.ConsoleWriter {
	if layout == "" {
		layout = time.DateTime
	}

	console := zerolog.ConsoleWriter{Out: out, NoColor: !colored, TimeFormat: layout}
	if colored {
		console.FormatLevel = colorLevel
		console.FormatTimestamp = func(i any) string { return colorTimestamp(i, layout) }
	}
	return console
}

type levelLabel struct {
	tag   string
	paint func(string, ...any) string
}

var levelLabels = map[string]levelLabel{
	zerolog.LevelTraceValue: {"TRC", term.Cyanf},
	zerolog.LevelDebugValue: {"DBG", term.Cyanf},
	zerolog.LevelInfoValue:  {"INF", term.Greenf},
	zerolog.LevelWarnValue:  {"WRN", term.Yellowf},
	zerolog.LevelErrorValue: {"ERR", term.Redf},
	zerolog.LevelFatalValue: {"FTL", term.Redf},
	zerolog.LevelPanicValue: {"PNC", term.Redf},
}

// colorLevel renders a three letter level tag, e.g. [WRN] in yellow.
func colorLevel(i any) string {
	level, _ := i.(string)
	label, ok := levelLabels[level]
	if !ok {
		return term.Whitef("[???]")
	}
	return label.paint("[%s]", label.tag)
}

func colorTimestamp(i any, layout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}
	if ts, err := time.Parse(zerolog.TimeFieldFormat, raw); err == nil {
		raw = ts.Local().Format(layout)
	}
	return term.Cyanf("[%s]", raw)
}
