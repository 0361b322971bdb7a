package event

import (
	"fmt"
	"time"
)

// Level is the severity attached to an Event.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelNone
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	case LevelNone:
		return "none"
	default:
		return "unknown"
	}
}

// tag is the marker inserted between the timestamp and the text of a formatted line.
func (l Level) tag() string {
	switch l {
	case LevelTrace:
		return "TRACE - "
	case LevelDebug:
		return "DEBUG - "
	case LevelWarn:
		return "WARN - "
	case LevelError:
		return "ERR - "
	case LevelCritical:
		return "CRIT - "
	default:
		return ""
	}
}

// Source tells where an Event came from.
type Source int

const (
	// SourceSystem is used for messages produced by the supervisor itself.
	SourceSystem Source = iota
	SourceStdout
	SourceStderr
)

func (s Source) String() string {
	switch s {
	case SourceStdout:
		return "stdout"
	case SourceStderr:
		return "stderr"
	default:
		return "system"
	}
}

// Event is an immutable, timestamped log line.
// Text holds the raw message; Line renders it for display and relay.
type Event struct {
	Text   string
	Level  Level
	Time   time.Time
	Source Source
}

const (
	dateLayout = "01/02/2006"
	timeLayout = "15:04:05"
)

// TimeString renders t as "[MM/DD/YYYY - HH:MM:SS]".
func TimeString(t time.Time) string {
	return fmt.Sprintf("[%s - %s]", t.Format(dateLayout), t.Format(timeLayout))
}

// Line renders the event as "[date - time] - TAG - text".
func (e Event) Line() string {
	return TimeString(e.Time) + " - " + e.Level.tag() + e.Text
}

// New creates a system event at the current time.
func New(text string, level Level) Event {
	return Event{Text: text, Level: level, Time: time.Now(), Source: SourceSystem}
}

// Log is a plain (untagged) system message.
func Log(text string) Event { return New(text, LevelNone) }

// LogAt is Log with an explicit timestamp.
func LogAt(text string, t time.Time) Event {
	return Event{Text: text, Level: LevelNone, Time: t, Source: SourceSystem}
}

func Warn(text string) Event { return New(text, LevelWarn) }

func Error(text string) Event { return New(text, LevelError) }

// Output wraps one line of child-process output. stderr lines are tagged as errors.
func Output(src Source, text string, t time.Time) Event {
	level := LevelNone
	if src == SourceStderr {
		level = LevelError
	}
	return Event{Text: text, Level: level, Time: t, Source: src}
}
