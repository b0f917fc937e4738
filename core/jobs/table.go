// Package jobs tracks the process groups the shell has put in the background
// or found stopped.
//
// Jobs are addressed by their display index: the 1-based position in the
// table. Removing a job shifts every later job down by one so indices stay
// dense.
package jobs

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when an index does not name a job.
var ErrNotFound = errors.New("job not found")

// State is the last known state of a job's process group.
type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Job is a tracked process group.
type Job struct {
	// Index is the display index at the time the job was read from the table.
	Index int
	// Pgid is the process group id, equal to the pid of the first stage.
	Pgid int
	// Members holds the pids of the group that have not been reaped yet.
	Members []int
	// Command is the input line that started the job.
	Command string
	State   State
}

func (j Job) copy(index int) Job {
	j.Index = index
	j.Members = append([]int(nil), j.Members...)
	return j
}

// Table is an ordered list of jobs. It's safe for concurrent use.
type Table struct {
	mu   sync.Mutex
	jobs []Job
}

// Append adds a job for pgid and returns its display index. A job already
// tracked for the same group is replaced in place.
func (t *Table) Append(pgid int, members []int, command string, state State) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := Job{
		Pgid:    pgid,
		Members: append([]int(nil), members...),
		Command: command,
		State:   state,
	}

	if i := t.findGroup(pgid); i >= 0 {
		t.jobs[i] = job
		return i + 1
	}

	t.jobs = append(t.jobs, job)
	return len(t.jobs)
}

// Remove deletes the job at index and returns it.
func (t *Table) Remove(index int) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 1 || index > len(t.jobs) {
		return Job{}, fmt.Errorf("%w: %d", ErrNotFound, index)
	}

	job := t.jobs[index-1].copy(index)
	t.jobs = append(t.jobs[:index-1], t.jobs[index:]...)
	return job, nil
}

// Resolve returns the job at index.
func (t *Table) Resolve(index int) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 1 || index > len(t.jobs) {
		return Job{}, fmt.Errorf("%w: %d", ErrNotFound, index)
	}
	return t.jobs[index-1].copy(index), nil
}

// List returns a snapshot of the table in display order.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Job, len(t.jobs))
	for i, job := range t.jobs {
		out[i] = job.copy(i + 1)
	}
	return out
}

// Len returns the number of tracked jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// FindGroup returns the job with a member pid.
func (t *Table) FindGroup(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.findMember(pid); i >= 0 {
		return t.jobs[i].copy(i + 1), true
	}
	return Job{}, false
}

// SetState updates the state of the job containing pid. It reports whether
// such a job exists.
func (t *Table) SetState(pid int, state State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.findMember(pid)
	if i < 0 {
		return false
	}
	t.jobs[i].State = state
	return true
}

// MarkStopped records that a member of a job was stopped.
func (t *Table) MarkStopped(pid int) bool {
	return t.SetState(pid, Stopped)
}

// Reap forgets a terminated pid. When the pid was the last live member of its
// job, the job is removed and returned with removed set.
func (t *Table) Reap(pid int) (job Job, removed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.findMember(pid)
	if i < 0 {
		return Job{}, false
	}

	members := t.jobs[i].Members[:0]
	for _, member := range t.jobs[i].Members {
		if member != pid {
			members = append(members, member)
		}
	}
	t.jobs[i].Members = members

	if len(members) > 0 {
		return t.jobs[i].copy(i + 1), false
	}

	job = t.jobs[i].copy(i + 1)
	t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
	return job, true
}

func (t *Table) findGroup(pgid int) int {
	for i, job := range t.jobs {
		if job.Pgid == pgid {
			return i
		}
	}
	return -1
}

func (t *Table) findMember(pid int) int {
	for i, job := range t.jobs {
		if job.Pgid == pid {
			return i
		}
		for _, member := range job.Members {
			if member == pid {
				return i
			}
		}
	}
	return -1
}
