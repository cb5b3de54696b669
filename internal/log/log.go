// Package log is tendercore's own structured logger. It is a small,
// purpose-built port of the logging idiom autonity's own log.Logger exposes
// to every service (see eth/backend.go's `log log.Logger` field) — this pack
// does not ship that package's source, so it is rebuilt here directly on the
// real third-party libraries it is built on upstream: go-stack/stack for
// call-site capture and mattn/go-colorable for a colorized terminal writer.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Level is a logging severity, ordered from most to least severe.
type Level int

const (
	LvlCrit Level = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Level) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "?????"
	}
}

var levelColor = map[Level]string{
	LvlCrit:  "\x1b[35m",
	LvlError: "\x1b[31m",
	LvlWarn:  "\x1b[33m",
	LvlInfo:  "\x1b[32m",
	LvlDebug: "\x1b[36m",
	LvlTrace: "\x1b[90m",
}

const colorReset = "\x1b[0m"

// Logger is a leveled, structured logger that carries a fixed context of
// key/value pairs, added to every line it emits.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	// New returns a child logger with additional fixed context.
	New(ctx ...interface{}) Logger
}

type logger struct {
	ctx     []interface{}
	out     io.Writer
	colored bool
	level   Level
	mu      *sync.Mutex
}

var root = newRoot()

func newRoot() *logger {
	colored := isTerminal(os.Stderr)
	var out io.Writer = os.Stderr
	if colored {
		out = colorable.NewColorableStderr()
	}
	return &logger{out: out, colored: colored, level: LvlInfo, mu: &sync.Mutex{}}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Root returns the process-wide root logger.
func Root() Logger { return root }

// New returns a child of the root logger with the given context.
func New(ctx ...interface{}) Logger { return root.New(ctx...) }

// SetLevel adjusts the root logger's verbosity.
func SetLevel(l Level) { root.level = l }

func (l *logger) New(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{ctx: merged, out: l.out, colored: l.colored, level: l.level, mu: l.mu}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }

func (l *logger) write(lvl Level, msg string, ctx []interface{}) {
	if lvl > l.level {
		return
	}
	var site string
	if lvl <= LvlWarn {
		site = stack.Caller(2).String()
	}

	var b strings.Builder
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	if l.colored {
		b.WriteString(levelColor[lvl])
	}
	b.WriteString(ts)
	b.WriteByte(' ')
	b.WriteString(lvl.String())
	if l.colored {
		b.WriteString(colorReset)
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	if site != "" {
		fmt.Fprintf(&b, " (%s)", site)
	}

	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}

	l.mu.Lock()
	fmt.Fprintln(l.out, b.String())
	l.mu.Unlock()
}
