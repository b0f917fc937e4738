package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonLinesRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	session := NewJsonLinesLogRecorder(buf).NewSession()
	session.now = func() time.Time {
		return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
	}

	require.NoError(t, session.Record(LogEntry{Type: EventLaunch, Pgid: 10, Pids: []int{10, 11}, Command: "ls | wc"}))
	require.NoError(t, session.Record(LogEntry{Type: EventStopped, Pgid: 10, Status: "stopped: SIGTSTP"}))

	var got []*LogEntry
	require.NoError(t, ReadJSONLinesLog(buf, func(le *LogEntry) {
		got = append(got, le)
	}))

	require.Len(t, got, 2)
	assert.Equal(t, session.SessionID(), got[0].SessionID)
	assert.NotEmpty(t, got[0].SessionID)
	assert.Equal(t, []int{10, 11}, got[0].Pids)
	assert.Equal(t, EventStopped, got[1].Type)
	assert.Equal(t, time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC).UnixNano()/1000, got[1].TimestampMicros)
}

func TestSessionsAreDistinct(t *testing.T) {
	l := NewNopLogger()
	assert.NotEqual(t, l.NewSession().SessionID(), l.NewSession().SessionID())
	assert.NoError(t, l.NewSession().Record(LogEntry{Type: EventError}))
}

func TestRecorderErrorsPropagate(t *testing.T) {
	failure := errors.New("disk full")
	l := &Logger{Record: func(*LogEntry) error { return failure }}
	assert.ErrorIs(t, l.NewSession().Record(LogEntry{Type: EventLaunch}), failure)
}

func TestReport(t *testing.T) {
	var report Report
	for _, le := range []*LogEntry{
		{SessionID: "a", Type: EventLaunch, Command: "sleep 10", Pids: []int{5}},
		{SessionID: "a", Type: EventStopped},
		{SessionID: "a", Type: EventResumed},
		{SessionID: "a", Type: EventExited, Status: "exit status 0"},
		{SessionID: "b", Type: EventLaunch, Command: "ls | wc", Pids: []int{7, 8}},
		{SessionID: "b", Type: EventError, Error: "invalid program"},
	} {
		report.Update(le)
	}

	assert.Equal(t, 6, report.LogEntries)
	assert.Equal(t, 2, report.Jobs.Launched)
	assert.Equal(t, 3, report.Jobs.Processes)
	assert.Equal(t, 1, report.Jobs.Stopped)
	assert.Equal(t, 1, report.Jobs.Resumed)
	assert.Equal(t, 1, report.Errors.Messages.Count("invalid program"))
	assert.Equal(t, []string{"a", "b"}, report.Sessions.Keys())
}
