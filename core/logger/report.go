package logger

import (
	"encoding/json"
	"io"
	"sort"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries int        `json:"log_entries"`
	Sessions   StrCounter `json:"sessions"`
	EventTypes StrCounter `json:"event_types"`

	Jobs   JobReport   `json:"job_report"`
	Errors ErrorReport `json:"error_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	r.Sessions.Increment(le.SessionID)
	r.EventTypes.Increment(string(le.Type))

	switch le.Type {
	case EventLaunch:
		r.Jobs.Launched++
		r.Jobs.Commands.Increment(le.Command)
		r.Jobs.Processes += len(le.Pids)
	case EventStopped:
		r.Jobs.Stopped++
	case EventResumed:
		r.Jobs.Resumed++
	case EventExited:
		r.Jobs.Statuses.Increment(le.Status)
	case EventError:
		r.Errors.Messages.Increment(le.Error)
	}
}

type JobReport struct {
	Launched  int        `json:"launched"`
	Processes int        `json:"processes"`
	Stopped   int        `json:"stopped"`
	Resumed   int        `json:"resumed"`
	Commands  StrCounter `json:"commands"`
	Statuses  StrCounter `json:"exit_statuses"`
}

type ErrorReport struct {
	Messages StrCounter `json:"messages"`
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns how many times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// Keys returns the seen keys, most frequent first.
func (s *StrCounter) Keys() []string {
	var out []string
	for k := range s.internal {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.internal[out[i]] == s.internal[out[j]] {
			return out[i] < out[j]
		}
		return s.internal[out[i]] > s.internal[out[j]]
	})
	return out
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}
