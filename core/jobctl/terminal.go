package jobctl

import (
	"fmt"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Controller owns the foreground process group of the controlling terminal.
type Controller interface {
	// Interactive reports whether the shell is attached to a terminal.
	Interactive() bool
	// Fd is the terminal's descriptor in the shell.
	Fd() int
	// Foreground hands the terminal to pgid.
	Foreground(pgid int) error
	// Reclaim hands the terminal back to the shell and restores its modes.
	Reclaim() error
}

// Terminal is the Controller for a real tty. When the file isn't a terminal
// every operation is a no-op.
type Terminal struct {
	mu          sync.Mutex
	fd          int
	interactive bool
	shellPgid   int
	modes       *term.State
}

var _ Controller = (*Terminal)(nil)

// NewTerminal takes control of the terminal f is attached to. It waits until
// the shell is started in the foreground, moves the shell into its own process
// group and saves the terminal modes.
func NewTerminal(f *os.File) (*Terminal, error) {
	t := &Terminal{
		fd:        int(f.Fd()),
		shellPgid: unix.Getpgrp(),
	}
	if !term.IsTerminal(t.fd) {
		return t, nil
	}
	t.interactive = true

	// If started in the background, stop until the user moves us forward.
	for {
		owner, err := unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
		if err != nil {
			return nil, fmt.Errorf("reading terminal owner: %w", err)
		}
		if owner == t.shellPgid {
			break
		}
		if err := unix.Kill(-t.shellPgid, unix.SIGTTIN); err != nil {
			return nil, err
		}
	}

	// A session leader already leads its own group and can't change it.
	if pid := unix.Getpid(); pid != t.shellPgid {
		if err := unix.Setpgid(pid, pid); err != nil {
			return nil, fmt.Errorf("creating shell process group: %w", err)
		}
		t.shellPgid = pid
	}

	if err := t.setForeground(t.shellPgid); err != nil {
		return nil, err
	}

	modes, err := term.GetState(t.fd)
	if err != nil {
		return nil, fmt.Errorf("saving terminal modes: %w", err)
	}
	t.modes = modes

	return t, nil
}

func (t *Terminal) Interactive() bool {
	return t.interactive
}

func (t *Terminal) Fd() int {
	return t.fd
}

// ShellPgid is the process group the shell runs in.
func (t *Terminal) ShellPgid() int {
	return t.shellPgid
}

// Owner returns the process group currently holding the terminal.
func (t *Terminal) Owner() (int, error) {
	if !t.interactive {
		return t.shellPgid, nil
	}
	return unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
}

func (t *Terminal) Foreground(pgid int) error {
	if !t.interactive {
		return nil
	}
	return t.setForeground(pgid)
}

func (t *Terminal) Reclaim() error {
	if !t.interactive {
		return nil
	}
	if err := t.setForeground(t.shellPgid); err != nil {
		return err
	}
	if t.modes != nil {
		return term.Restore(t.fd, t.modes)
	}
	return nil
}

// setForeground calls tcsetpgrp. The shell may be in a background group at
// this point, so SIGTTOU is ignored for the duration of the call.
func (t *Terminal) setForeground(pgid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)

	if err := unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid); err != nil {
		return fmt.Errorf("moving process group %d to the foreground: %w", pgid, err)
	}
	return nil
}
