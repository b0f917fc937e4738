package core

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/josephlewis42/nyush/core/logger"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]*Builtin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) error
}

type ShellBuiltinFunc func(s *Shell, args []string) error

func (f ShellBuiltinFunc) Main(s *Shell, args []string) error {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Builtin is a command run inside the shell process.
type Builtin struct {
	ShellBuiltin
	// Usage is the synopsis shown by the builtins listing.
	Usage string
	Short string
	// Args is the exact number of arguments after the name.
	Args int
}

// BuiltinArity maps each builtin name to the number of words, name included,
// it must be called with.
func BuiltinArity() map[string]int {
	out := make(map[string]int, len(AllBuiltins))
	for name, b := range AllBuiltins {
		out[name] = b.Args + 1
	}
	return out
}

// BuiltinNames returns the sorted builtin names.
func BuiltinNames() []string {
	var out []string
	for name := range AllBuiltins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) error {
	if err := os.Chdir(args[1]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDirectory, err)
	}
	return nil
}

// Exit quits the shell unless jobs remain.
func Exit(s *Shell, args []string) error {
	if s.Jobs.Len() > 0 {
		return ErrSuspendedJobs
	}
	s.quit = true
	return nil
}

// Jobs lists the job table.
func Jobs(s *Shell, args []string) error {
	for _, job := range s.Jobs.List() {
		fmt.Fprintf(s.stdout, "[%d] %s\n", job.Index, job.Command)
	}
	return nil
}

// Fg moves a job to the foreground, continues it and waits for it.
func Fg(s *Shell, args []string) error {
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidJob, args[1])
	}

	// Apply pending changes so a stale stop isn't mistaken for a new one.
	s.reapJobs()

	job, err := s.Jobs.Remove(index)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	s.Metrics.SetJobs(s.Jobs.Len())

	_ = s.Terminal.Foreground(job.Pgid)
	if err := s.Relay.Continue(job.Pgid); err != nil {
		// The whole group may have exited since it was listed.
		s.record(logger.LogEntry{Type: logger.EventError, Pgid: job.Pgid, Error: err.Error()})
	}
	s.record(logger.LogEntry{Type: logger.EventResumed, Pgid: job.Pgid, Command: job.Command})

	return s.waitForeground(job.Pgid, job.Members, job.Command)
}

func init() {
	AllBuiltins["cd"] = &Builtin{
		ShellBuiltin: ShellBuiltinFunc(Cd),
		Usage:        "cd DIR",
		Short:        "Change the working directory.",
		Args:         1,
	}
	AllBuiltins["exit"] = &Builtin{
		ShellBuiltin: ShellBuiltinFunc(Exit),
		Usage:        "exit",
		Short:        "Exit the shell if there are no suspended jobs.",
	}
	AllBuiltins["jobs"] = &Builtin{
		ShellBuiltin: ShellBuiltinFunc(Jobs),
		Usage:        "jobs",
		Short:        "List background and suspended jobs.",
	}
	AllBuiltins["fg"] = &Builtin{
		ShellBuiltin: ShellBuiltinFunc(Fg),
		Usage:        "fg INDEX",
		Short:        "Resume a job in the foreground.",
		Args:         1,
	}
}
