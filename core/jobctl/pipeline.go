package jobctl

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/josephlewis42/nyush/core/metrics"
	"github.com/josephlewis42/nyush/core/shell"
	"golang.org/x/sys/unix"
)

// Builder starts pipelines as process groups.
type Builder struct {
	// BinDir is where programs named without a slash are found.
	BinDir string
	// Env is the environment of every started program.
	Env []string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	Terminal Controller
	Relay    *Relay
	Metrics  *metrics.Collector

	pipe  func() (r, w *os.File, err error)
	start func(cmd *exec.Cmd) (pid int, err error)
}

// Launched describes a started pipeline.
type Launched struct {
	// Pgid is the process group, the pid of the first stage that started. It
	// is 0 if no stage started.
	Pgid int
	// Members holds the started pids in pipeline order.
	Members []int
	// Failed holds the stages that didn't start.
	Failed []*StageError
}

// Resolve returns the path executed for a program name. Names containing a
// slash are used as is, anything else is looked up in BinDir only.
func (b *Builder) Resolve(file string) string {
	if strings.Contains(file, "/") {
		return file
	}
	return filepath.Join(b.BinDir, file)
}

// Launch creates the pipes between the stages of p and starts one process per
// stage in a new process group. A foreground pipeline's group receives the
// terminal before its first program runs.
//
// Stages that fail to start are reported in Launched.Failed while the rest of
// the pipeline keeps running. Running out of processes or descriptors returns
// ErrLaunchFailed after killing anything already started.
func (b *Builder) Launch(p *shell.Pipeline) (*Launched, error) {
	if b.Relay != nil {
		release := b.Relay.HoldReaping()
		defer release()
	}

	// Every descriptor the shell opens is closed once the children have
	// their copies.
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	n := len(p.Stages)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	for i := 0; i < n-1; i++ {
		r, w, err := b.newPipe()
		if err != nil {
			b.Metrics.RecordLaunchFailure("pipe")
			return nil, fmt.Errorf("%w: creating pipe: %w", ErrLaunchFailed, err)
		}
		opened = append(opened, r, w)
		writers[i] = w
		readers[i+1] = r
		b.Metrics.RecordPipeCreated()
	}

	out := &Launched{}
	for i, stage := range p.Stages {
		stdin, stdout := b.Stdin, b.Stdout
		if readers[i] != nil {
			stdin = readers[i]
		}
		if writers[i] != nil {
			stdout = writers[i]
		}

		fail := func(err error) {
			out.Failed = append(out.Failed, &StageError{Stage: i, Program: stage.Argv[0], Err: err})
		}

		if stage.Stdin != "" {
			f, err := os.Open(stage.Stdin)
			if err != nil {
				b.Metrics.RecordLaunchFailure(ErrInvalidFile.Error())
				fail(fmt.Errorf("%w: %w", ErrInvalidFile, err))
				continue
			}
			opened = append(opened, f)
			stdin = f
		}

		if stage.Stdout != nil {
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if stage.Stdout.Append {
				flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			}
			f, err := os.OpenFile(stage.Stdout.Path, flags, 0644)
			if err != nil {
				b.Metrics.RecordLaunchFailure(ErrInvalidFile.Error())
				fail(fmt.Errorf("%w: %w", ErrInvalidFile, err))
				continue
			}
			opened = append(opened, f)
			stdout = f
		}

		cmd := &exec.Cmd{
			Path:        b.Resolve(stage.Argv[0]),
			Args:        stage.Argv,
			Env:         b.Env,
			SysProcAttr: b.procAttr(out.Pgid, p.Background),
		}
		// A nil stream is connected to the null device.
		if stdin != nil {
			cmd.Stdin = stdin
		}
		if stdout != nil {
			cmd.Stdout = stdout
		}
		if b.Stderr != nil {
			cmd.Stderr = b.Stderr
		}

		pid, err := b.startCmd(cmd)
		switch {
		case err != nil && isResourceError(err):
			b.Metrics.RecordLaunchFailure("resources")
			if out.Pgid != 0 && b.Relay != nil {
				_ = b.Relay.Kill(out.Pgid, unix.SIGKILL)
			}
			return out, fmt.Errorf("%w: starting %s: %w", ErrLaunchFailed, stage.Argv[0], err)
		case err != nil:
			b.Metrics.RecordLaunchFailure(ErrInvalidProgram.Error())
			fail(fmt.Errorf("%w: %w", ErrInvalidProgram, err))
			continue
		}

		b.Metrics.RecordProcessLaunched()
		if out.Pgid == 0 {
			out.Pgid = pid
		}
		out.Members = append(out.Members, pid)
	}

	return out, nil
}

// procAttr puts a process in group pgid, or in a new group it leads when pgid
// is 0. The leader of a foreground pipeline takes the terminal in the child,
// between fork and exec.
func (b *Builder) procAttr(pgid int, background bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    pgid,
	}
	if pgid == 0 && !background && b.Terminal != nil && b.Terminal.Interactive() {
		attr.Foreground = true
		attr.Ctty = b.Terminal.Fd()
	}
	return attr
}

func (b *Builder) newPipe() (*os.File, *os.File, error) {
	if b.pipe != nil {
		return b.pipe()
	}
	return os.Pipe()
}

func (b *Builder) startCmd(cmd *exec.Cmd) (int, error) {
	if b.start != nil {
		return b.start(cmd)
	}
	return startProcess(cmd)
}

// startProcess starts cmd and gives up the handle; the Relay reaps it.
func startProcess(cmd *exec.Cmd) (int, error) {
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
