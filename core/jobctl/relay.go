package jobctl

import (
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/josephlewis42/nyush/core/metrics"
	"golang.org/x/sys/unix"
)

// Event is a state change of a child process reported by wait4.
type Event struct {
	Pid    int
	Status unix.WaitStatus
}

// Terminated reports whether the process is gone.
func (e Event) Terminated() bool {
	return e.Status.Exited() || e.Status.Signaled()
}

func (e Event) String() string {
	switch {
	case e.Status.Exited():
		return "exit status " + strconv.Itoa(e.Status.ExitStatus())
	case e.Status.Signaled():
		return "signal: " + unix.SignalName(e.Status.Signal())
	case e.Status.Stopped():
		return "stopped: " + unix.SignalName(e.Status.StopSignal())
	default:
		return "unknown status"
	}
}

// Relay forwards interactive signals to the foreground process group and
// reaps children when SIGCHLD arrives.
//
// Reaped events are queued; the goroutine that owns the job table drains the
// queue. The relay itself never touches jobs.
type Relay struct {
	Metrics *metrics.Collector

	signals chan os.Signal
	done    chan struct{}
	stopped sync.WaitGroup

	foreground atomic.Int64

	// reapMu is held while children are reaped and while pipelines launch.
	reapMu sync.Mutex

	mu    sync.Mutex
	queue []Event
	ready chan struct{}

	kill  func(pid int, sig unix.Signal) error
	wait4 func(pid int, ws *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)
}

// NewRelay creates a relay; call Start to begin handling signals.
func NewRelay(m *metrics.Collector) *Relay {
	return &Relay{
		Metrics: m,
		signals: make(chan os.Signal, 16),
		done:    make(chan struct{}),
		ready:   make(chan struct{}, 1),
		kill:    unix.Kill,
		wait4:   unix.Wait4,
	}
}

// Start subscribes to signals and handles them on a new goroutine. SIGQUIT
// and SIGTERM are consumed so the shell outlives them.
func (r *Relay) Start() {
	signal.Notify(r.signals, unix.SIGINT, unix.SIGTSTP, unix.SIGCHLD, unix.SIGQUIT, unix.SIGTERM)

	r.stopped.Add(1)
	go func() {
		defer r.stopped.Done()
		for {
			select {
			case <-r.done:
				return
			case sig := <-r.signals:
				r.handle(sig)
			}
		}
	}()
}

// Stop unsubscribes from signals and waits for the handler goroutine to exit.
func (r *Relay) Stop() {
	signal.Stop(r.signals)
	close(r.done)
	r.stopped.Wait()
}

func (r *Relay) handle(sig os.Signal) {
	switch sig {
	case unix.SIGCHLD:
		r.Reap()
	case unix.SIGINT, unix.SIGTSTP:
		r.Forward(sig.(unix.Signal))
	}
}

// SetForeground records the group interactive signals are forwarded to.
func (r *Relay) SetForeground(pgid int) {
	r.foreground.Store(int64(pgid))
}

// ClearForeground stops forwarding; signals are consumed until the next
// SetForeground.
func (r *Relay) ClearForeground() {
	r.foreground.Store(0)
}

// Foreground returns the tracked group or 0.
func (r *Relay) Foreground() int {
	return int(r.foreground.Load())
}

// Forward sends sig to the foreground group. It reports whether there was
// one.
func (r *Relay) Forward(sig unix.Signal) bool {
	pgid := r.Foreground()
	if pgid == 0 {
		return false
	}

	if err := r.kill(-pgid, sig); err != nil {
		return false
	}
	r.Metrics.RecordSignalForwarded(unix.SignalName(sig))
	return true
}

// Continue resumes a stopped group.
func (r *Relay) Continue(pgid int) error {
	return r.kill(-pgid, unix.SIGCONT)
}

// Kill sends sig to every process in the group.
func (r *Relay) Kill(pgid int, sig unix.Signal) error {
	return r.kill(-pgid, sig)
}

// Reap collects every child that exited, was killed or stopped, without
// blocking, and queues the events. It returns the number queued.
func (r *Relay) Reap() int {
	r.reapMu.Lock()
	defer r.reapMu.Unlock()

	var events []Event
	for {
		var ws unix.WaitStatus
		pid, err := r.wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			break
		}
		events = append(events, Event{Pid: pid, Status: ws})
	}

	if len(events) == 0 {
		return 0
	}

	r.mu.Lock()
	r.queue = append(r.queue, events...)
	r.mu.Unlock()

	select {
	case r.ready <- struct{}{}:
	default:
	}
	return len(events)
}

// Drain removes and returns the queued events, oldest first.
func (r *Relay) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.queue
	r.queue = nil
	return out
}

// Ready receives a value after events are queued.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// HoldReaping stops children from being reaped until the returned function
// is called. A process group survives while its leader is an unreaped zombie,
// so later pipeline stages can still join it.
func (r *Relay) HoldReaping() (release func()) {
	r.reapMu.Lock()
	return r.reapMu.Unlock
}
