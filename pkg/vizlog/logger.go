// pkg/vizlog/logger.go

package vizlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vizlog/vizlog/internal/caller"
	"github.com/vizlog/vizlog/pkg/view"
)

// Tags passed in a log call's object list are attached to that record after
// the logger's default tags. They are never rendered as a logged value.
type Tags []string

// Msg passed in a log call's object list is accepted for forward
// compatibility with formatted-message support; it currently has no effect
// on the built record.
type Msg string

// frames between the public level methods and caller.Resolve: the level
// wrapper and the internal log method.
const internalLogFrames = 2

// Logger is a named, independently configurable record emitter. All loggers
// of a client forward their records to the client's shared session.
//
// Configuration setters are chainable:
//
//	vizlog.GetLogger("train").Level(vizlog.LevelDebug).Tags("model").Stdout(true)
type Logger struct {
	client *Client

	mu         sync.Mutex
	name       string
	minLevel   Level
	enabled    bool
	tags       []string
	echoStdout bool
	echoStderr bool
	stdout     io.Writer
	stderr     io.Writer
	callerSkip int
}

func newLogger(name string, client *Client) *Logger {
	return &Logger{
		client:   client,
		name:     name,
		minLevel: LevelInfo,
		enabled:  true,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// Name returns the logger's registry name.
func (l *Logger) Name() string {
	return l.name
}

// Level sets the least severe records to log. Panics on a value outside the
// defined levels: invalid configuration must fail at configuration time, not
// at log time.
func (l *Logger) Level(level Level) *Logger {
	if !level.valid() {
		panic(fmt.Sprintf("vizlog: invalid log level %d for logger '%s'", int(level), l.name))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
	return l
}

// Enabled sets whether this logger emits any records.
func (l *Logger) Enabled(enabled bool) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
	return l
}

// Tags replaces the default tags attached to every record from this logger.
func (l *Logger) Tags(tags ...string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tags = append([]string(nil), tags...)
	return l
}

// Stdout sets whether the raw logged objects are echoed to standard output.
func (l *Logger) Stdout(enabled bool) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echoStdout = enabled
	return l
}

// Stderr sets whether the raw logged objects are echoed to standard error.
func (l *Logger) Stderr(enabled bool) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echoStderr = enabled
	return l
}

// CallerSkip adds extra stack frames to skip when resolving the call site.
// Wrappers that forward to the level methods set this to the number of
// forwarding frames so records attribute their real origin.
func (l *Logger) CallerSkip(extra int) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callerSkip = extra
	return l
}

// setWriters redirects the echo streams. Test hook.
func (l *Logger) setWriters(stdout, stderr io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = stdout
	l.stderr = stderr
}

// Debug logs the objects at debug level.
func (l *Logger) Debug(objects ...interface{}) { l.log(LevelDebug, objects) }

// Info logs the objects at info level.
func (l *Logger) Info(objects ...interface{}) { l.log(LevelInfo, objects) }

// Warn logs the objects at warn level.
func (l *Logger) Warn(objects ...interface{}) { l.log(LevelWarn, objects) }

// Error logs the objects at error level.
func (l *Logger) Error(objects ...interface{}) { l.log(LevelError, objects) }

// log is the single internal entrypoint behind the four level methods. Only
// they may call it: the call site is resolved a fixed number of frames up,
// plus any configured extra skip.
func (l *Logger) log(level Level, objects []interface{}) {
	l.mu.Lock()
	enabled := l.enabled
	minLevel := l.minLevel
	echoStdout := l.echoStdout
	echoStderr := l.echoStderr
	stdout := l.stdout
	stderr := l.stderr
	defaultTags := l.tags
	skip := l.callerSkip
	name := l.name
	l.mu.Unlock()

	// No logging when globally or selectively disabled: no echo, no send.
	if !enabled || level < minLevel {
		return
	}

	loc := caller.Resolve(skip + internalLogFrames)

	values, callTags := splitCallOptions(objects)

	// Echo the raw objects, not the assembled view.
	if echoStdout {
		_, _ = fmt.Fprintln(stdout, values...)
	}
	if echoStderr {
		_, _ = fmt.Fprintln(stderr, values...)
	}

	var v view.View
	if len(values) == 1 {
		v = view.Assemble(values[0])
	} else {
		v = view.Assemble(view.Flow(values...))
	}

	tags := make([]string, 0, len(defaultTags)+len(callTags))
	tags = append(tags, defaultTags...)
	tags = append(tags, callTags...)

	record := &Record{
		Timestamp:    time.Now().UnixMilli(),
		FilePath:     loc.FilePath,
		LineNumber:   loc.LineNumber,
		ColumnNumber: -1,
		FunctionName: loc.FunctionName,
		LoggerName:   name,
		Level:        level.String(),
		Tags:         tags,
		View:         v,
	}

	l.client.send(record)
}

// splitCallOptions separates call-site options (Tags, Msg) from the values
// to be rendered.
func splitCallOptions(objects []interface{}) ([]interface{}, []string) {
	values := make([]interface{}, 0, len(objects))
	var tags []string

	for _, obj := range objects {
		switch o := obj.(type) {
		case Tags:
			tags = append(tags, o...)
		case Msg:
			// Reserved: formatted-message support is not implemented yet.
		default:
			values = append(values, obj)
		}
	}
	return values, tags
}
