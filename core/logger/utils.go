package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// EventType names a job lifecycle transition.
type EventType string

const (
	EventLaunch     EventType = "launch"
	EventBackground EventType = "background"
	EventForeground EventType = "foreground"
	EventStopped    EventType = "stopped"
	EventExited     EventType = "exited"
	EventReaped     EventType = "reaped"
	EventResumed    EventType = "resumed"
	EventError      EventType = "error"
)

// LogEntry is a single line of the event log.
type LogEntry struct {
	TimestampMicros int64     `json:"timestamp_micros"`
	SessionID       string    `json:"session_id,omitempty"`
	Type            EventType `json:"type"`

	// Pgid is the process group the event concerns, if any.
	Pgid int `json:"pgid,omitempty"`
	// Pids holds the processes the event concerns, leader first.
	Pids []int `json:"pids,omitempty"`
	// Command is the input line that created the job.
	Command string `json:"command,omitempty"`
	// Status is a human readable wait status for exited and stopped events.
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *LogEntry) error

// Logger captures job lifecycle events.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewNopLogger creates a Logger that drops every event.
func NewNopLogger() *Logger {
	return &Logger{
		Record: func(*LogEntry) error {
			return nil
		},
	}
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.NewString(), now: time.Now}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
	now       func() time.Time
}

// SessionID returns the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Record stamps the entry with the session and the current time and stores it.
func (l *SessionLogger) Record(le LogEntry) error {
	le.TimestampMicros = l.now().UnixNano() / int64(time.Microsecond)
	le.SessionID = l.sessionID
	return l.Logger.Record(&le)
}
