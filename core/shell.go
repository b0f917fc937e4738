package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/nyush/core/config"
	"github.com/josephlewis42/nyush/core/jobctl"
	"github.com/josephlewis42/nyush/core/jobs"
	"github.com/josephlewis42/nyush/core/logger"
	"github.com/josephlewis42/nyush/core/metrics"
	"github.com/josephlewis42/nyush/core/shell"
)

var (
	ErrInvalidDirectory = errors.New("invalid directory")
	ErrInvalidJob       = errors.New("invalid job")
	ErrSuspendedJobs    = errors.New("there are suspended jobs")
)

// userErrors are the reasons shown to the user, most specific first.
var userErrors = []error{
	shell.ErrInvalidCommand,
	ErrInvalidDirectory,
	ErrInvalidJob,
	ErrSuspendedJobs,
	jobctl.ErrInvalidFile,
	jobctl.ErrInvalidProgram,
	jobctl.ErrLaunchFailed,
}

// UserMessage returns the short reason printed after "Error: ".
func UserMessage(err error) string {
	for _, known := range userErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

// Options configure a Shell.
type Options struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	Config *config.Configuration
	// Events receives job lifecycle events, nil discards them.
	Events *logger.Logger
	// Metrics is optional.
	Metrics *metrics.Collector
}

// Shell is an interactive job control shell.
type Shell struct {
	Config   *config.Configuration
	Jobs     *jobs.Table
	Terminal jobctl.Controller
	Relay    *jobctl.Relay
	Builder  *jobctl.Builder
	Parser   *shell.Parser
	Events   *logger.SessionLogger
	Metrics  *metrics.Collector

	stdout io.Writer
	stderr io.Writer
	input  lineReader
	prompt *color.Color
	quit   bool
}

// NewShell takes control of the terminal (if any) and prepares the shell. The
// returned shell must be closed.
func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	events := opts.Events
	if events == nil {
		events = logger.NewNopLogger()
	}

	terminal, err := jobctl.NewTerminal(opts.Stdin)
	if err != nil {
		return nil, err
	}

	relay := jobctl.NewRelay(opts.Metrics)

	s := &Shell{
		Config:   cfg,
		Jobs:     &jobs.Table{},
		Terminal: terminal,
		Relay:    relay,
		Builder: &jobctl.Builder{
			BinDir:   cfg.BinDir,
			Env:      cfg.ChildEnv(os.Environ()),
			Stdin:    opts.Stdin,
			Stdout:   opts.Stdout,
			Stderr:   opts.Stderr,
			Terminal: terminal,
			Relay:    relay,
			Metrics:  opts.Metrics,
		},
		Parser:  &shell.Parser{Builtins: BuiltinArity()},
		Events:  events.NewSession(),
		Metrics: opts.Metrics,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
	}

	if terminal.Interactive() {
		rl, err := newReadlineReader(opts.Stdin, opts.Stdout, opts.Stderr)
		if err != nil {
			return nil, err
		}
		s.input = rl

		if cfg.ColorPrompt {
			s.prompt = color.New(color.FgGreen, color.Bold)
			s.prompt.EnableColor()
		}
	} else {
		s.input = newPlainReader(opts.Stdin, opts.Stdout)
	}

	return s, nil
}

// Prompt returns the text shown before each line.
func (s *Shell) Prompt() string {
	dir := "/"
	if wd, err := os.Getwd(); err == nil {
		dir = filepath.Base(wd)
	}

	prompt := fmt.Sprintf("[%s %s]$ ", s.Config.PromptName, dir)
	if s.prompt != nil {
		return s.prompt.Sprint(prompt)
	}
	return prompt
}

// Run reads and executes lines until end of input or exit. It returns an
// error wrapping jobctl.ErrLaunchFailed if the shell couldn't start
// processes.
func (s *Shell) Run() error {
	s.Relay.Start()
	defer s.Relay.Stop()

	for !s.quit {
		s.reapJobs()

		line, err := s.input.ReadLine(s.Prompt())
		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			return err

		case strings.TrimSpace(line) == "":
			continue
		}

		if err := s.RunLine(line); err != nil {
			s.printError(err)
			if errors.Is(err, jobctl.ErrLaunchFailed) {
				return err
			}
		}
	}

	return nil
}

// RunLine parses and executes a single line.
func (s *Shell) RunLine(line string) error {
	pipeline, err := s.Parser.Parse(line)
	if err != nil {
		return err
	}

	if s.Parser.IsBuiltin(pipeline) {
		argv := pipeline.Stages[0].Argv
		return AllBuiltins[argv[0]].Main(s, argv)
	}

	return s.execute(pipeline)
}

// Close releases the terminal and writes final metrics.
func (s *Shell) Close() error {
	var lastErr error
	if err := s.input.Close(); err != nil {
		lastErr = err
	}

	if path := s.Config.MetricsPath(); path != "" && s.Metrics != nil {
		if err := s.Metrics.WriteTextfile(path); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (s *Shell) execute(pipeline *shell.Pipeline) error {
	launched, err := s.Builder.Launch(pipeline)
	if launched != nil {
		for _, failure := range launched.Failed {
			s.printError(failure)
		}
	}
	if err != nil {
		return err
	}
	if len(launched.Members) == 0 {
		return nil
	}

	s.record(logger.LogEntry{
		Type:    logger.EventLaunch,
		Pgid:    launched.Pgid,
		Pids:    launched.Members,
		Command: pipeline.Text,
	})

	if pipeline.Background {
		fmt.Fprintf(s.stdout, "[Process id %d]\n", launched.Pgid)
		s.Jobs.Append(launched.Pgid, launched.Members, pipeline.Text, jobs.Running)
		s.Metrics.SetJobs(s.Jobs.Len())
		s.record(logger.LogEntry{Type: logger.EventBackground, Pgid: launched.Pgid})
		return nil
	}

	// The leader normally took the terminal before exec already.
	_ = s.Terminal.Foreground(launched.Pgid)
	return s.waitForeground(launched.Pgid, launched.Members, pipeline.Text)
}

// waitForeground blocks until the group stops or exits, then takes the
// terminal back. A stopped group becomes a job.
func (s *Shell) waitForeground(pgid int, members []int, command string) error {
	s.Relay.SetForeground(pgid)
	s.record(logger.LogEntry{Type: logger.EventForeground, Pgid: pgid, Pids: members})

	result := s.Relay.WaitGroup(members, s.handleEvent)

	s.Relay.ClearForeground()
	reclaimErr := s.Terminal.Reclaim()

	if result.Stopped {
		s.Jobs.Append(pgid, result.Alive, command, jobs.Stopped)
		s.record(logger.LogEntry{Type: logger.EventStopped, Pgid: pgid, Pids: result.Alive, Command: command, Status: result.Last.String()})
	} else {
		s.record(logger.LogEntry{Type: logger.EventExited, Pgid: pgid, Command: command, Status: result.Last.String()})
	}
	s.Metrics.SetJobs(s.Jobs.Len())

	if reclaimErr != nil {
		return fmt.Errorf("taking back the terminal: %w", reclaimErr)
	}
	return nil
}

// reapJobs applies queued process changes to the job table.
func (s *Shell) reapJobs() {
	s.Relay.Reap()
	for _, ev := range s.Relay.Drain() {
		s.handleEvent(ev)
	}
}

// handleEvent updates the job table for a process outside the foreground.
func (s *Shell) handleEvent(ev jobctl.Event) {
	switch {
	case ev.Terminated():
		if job, removed := s.Jobs.Reap(ev.Pid); removed {
			s.Metrics.SetJobs(s.Jobs.Len())
			s.record(logger.LogEntry{Type: logger.EventReaped, Pgid: job.Pgid, Command: job.Command, Status: ev.String()})
		}
	case ev.Status.Stopped():
		if s.Jobs.MarkStopped(ev.Pid) {
			s.record(logger.LogEntry{Type: logger.EventStopped, Pids: []int{ev.Pid}, Status: ev.String()})
		}
	}
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.stderr, "Error: %s\n", UserMessage(err))
	s.record(logger.LogEntry{Type: logger.EventError, Error: err.Error()})
}

// record logs an event; a broken event log never interrupts the shell.
func (s *Shell) record(le logger.LogEntry) {
	_ = s.Events.Record(le)
}
