package kfmt

// Level controls which Logger messages are emitted.
type Level uint8

// The supported log levels in increasing order of severity.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError

	// LevelSilent suppresses all logger output.
	LevelSilent
)

var (
	// activeLevel is the minimum level that gets emitted.
	activeLevel = LevelWarn

	levelNames = [...]string{"trace", "debug", "info", "warn", "error", "silent"}

	warnTag  = []byte("warning: ")
	errorTag = []byte("error: ")
)

// String returns the name of the level.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel maps a level name to a Level.
func ParseLevel(name string) (Level, bool) {
	for index, levelName := range levelNames {
		if levelName == name {
			return Level(index), true
		}
	}
	return LevelWarn, false
}

// SetLogLevel sets the minimum level for messages emitted by all Loggers.
func SetLogLevel(level Level) {
	activeLevel = level
}

// LogLevel returns the active log level.
func LogLevel() Level {
	return activeLevel
}

// Logger emits leveled diagnostic messages for a kernel module. Each message
// is written to the active output sink as a single "[module] message" line.
type Logger struct {
	Module string
}

// Enabled returns true if messages with the given level are emitted.
func (l Logger) Enabled(level Level) bool {
	return level >= activeLevel && level != LevelSilent
}

// Tracef emits a trace message.
func (l Logger) Tracef(format string, args ...interface{}) {
	l.logf(LevelTrace, format, args...)
}

// Debugf emits a debug message.
func (l Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

// Infof emits an informational message.
func (l Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

// Warnf emits a warning.
func (l Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

// Errorf emits an error message.
func (l Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

func (l Logger) logf(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	Fprintf(outputSink, "[%s] ", l.Module)
	switch level {
	case LevelWarn:
		doWrite(outputSink, warnTag)
	case LevelError:
		doWrite(outputSink, errorTag)
	}
	Fprintf(outputSink, format, args...)
	writeByte(outputSink, '\n')
}
