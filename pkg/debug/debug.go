// Package debug builds the zerolog loggers used by the command line and the
// language server.
package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

const DefaultTimeFormat = "2006-01-02T15:04:05.0000Z"

type Options struct {
	Level  zerolog.Level
	Pretty bool
	Color  bool
	Caller bool
	// Component is attached to every entry when set.
	Component string
}

// NewLogger returns a logger writing JSON to w, or a console layout when
// Pretty is set.
func NewLogger(w io.Writer, opts Options) zerolog.Logger {
	out := w
	if opts.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !opts.Color,
			TimeFormat: time.TimeOnly,
		}
	}

	ctx := zerolog.New(out).Level(opts.Level).With()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}
	logger := ctx.Logger().Hook(CustomTimeHook{WithColor: opts.Color})
	if opts.Caller {
		logger = logger.Hook(CustomCallerHook{WithColor: opts.Color})
	}
	return logger
}

// skipFrameOf reads the event's private skip count so the caller hook honors
// CallerSkipFrame.
func skipFrameOf(e *zerolog.Event) int {
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")
	if field.IsValid() {
		return int(field.Int())
	}
	return 0
}

type CustomTimeHook struct {
	WithColor bool
	Format    string
}

func (t CustomTimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = DefaultTimeFormat
	}
	e.Str("time", time.Now().UTC().Format(format))
}

type CustomCallerHook struct {
	WithColor bool
}

func (c CustomCallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(skipFrameOf(e) + 3)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	pkg, _ := SplitFuncName(fn.Name())
	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// SplitFuncName splits a runtime function name into its package path and the
// function, keeping method receivers with the function.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	dot := strings.IndexByte(name[lastSlash:], '.')
	if dot < 0 {
		return name, ""
	}
	dot += lastSlash

	pkg, function = name[:dot], name[dot+1:]
	if i := strings.Index(pkg, ".("); i >= 0 {
		function = pkg[i+1:] + "." + function
		pkg = pkg[:i]
	}
	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := FileNameOfPath(path)
	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, line)
	}
	sep := color.New(color.Faint).Sprint(":")
	return pkg + sep + color.New(color.Bold).Sprint(file) + sep + color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
}

func FileNameOfPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
