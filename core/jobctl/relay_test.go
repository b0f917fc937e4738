package jobctl

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/josephlewis42/nyush/core/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// Status words as built by the kernel.
func exited(code int) unix.WaitStatus {
	return unix.WaitStatus(code << 8)
}

func signaled(sig int) unix.WaitStatus {
	return unix.WaitStatus(sig)
}

func stoppedBy(sig int) unix.WaitStatus {
	return unix.WaitStatus(sig<<8 | 0x7f)
}

type fakeChildren struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeChildren) add(events ...Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
}

func (f *fakeChildren) wait4(pid int, ws *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.events) == 0 {
		return 0, nil
	}
	ev := f.events[0]
	f.events = f.events[1:]
	*ws = ev.Status
	return ev.Pid, nil
}

type sentSignal struct {
	pid int
	sig unix.Signal
}

type fakeKiller struct {
	mu   sync.Mutex
	sent []sentSignal
}

func (f *fakeKiller) kill(pid int, sig unix.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSignal{pid, sig})
	return nil
}

func newFakeRelay() (*Relay, *fakeChildren, *fakeKiller) {
	children := &fakeChildren{}
	killer := &fakeKiller{}
	r := NewRelay(metrics.NewCollector())
	r.wait4 = children.wait4
	r.kill = killer.kill
	return r, children, killer
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "exit status 3", Event{Status: exited(3)}.String())
	assert.Equal(t, "signal: SIGKILL", Event{Status: signaled(int(unix.SIGKILL))}.String())
	assert.Equal(t, "stopped: SIGTSTP", Event{Status: stoppedBy(int(unix.SIGTSTP))}.String())

	assert.True(t, Event{Status: exited(0)}.Terminated())
	assert.True(t, Event{Status: signaled(int(unix.SIGINT))}.Terminated())
	assert.False(t, Event{Status: stoppedBy(int(unix.SIGSTOP))}.Terminated())
}

func TestRelay_Forward(t *testing.T) {
	r, _, killer := newFakeRelay()

	// Without a foreground group signals are consumed.
	assert.False(t, r.Forward(unix.SIGINT))
	assert.Empty(t, killer.sent)

	r.SetForeground(42)
	assert.Equal(t, 42, r.Foreground())
	assert.True(t, r.Forward(unix.SIGINT))
	assert.True(t, r.Forward(unix.SIGTSTP))

	r.ClearForeground()
	assert.False(t, r.Forward(unix.SIGINT))

	assert.Equal(t, []sentSignal{{-42, unix.SIGINT}, {-42, unix.SIGTSTP}}, killer.sent)
	expected := `
# HELP nyush_signals_forwarded_total Interactive signals relayed to the foreground process group
# TYPE nyush_signals_forwarded_total counter
nyush_signals_forwarded_total{signal="SIGINT"} 1
nyush_signals_forwarded_total{signal="SIGTSTP"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(r.Metrics.Registry(), strings.NewReader(expected), "nyush_signals_forwarded_total"))
}

func TestRelay_ContinueAndKill(t *testing.T) {
	r, _, killer := newFakeRelay()

	require.NoError(t, r.Continue(7))
	require.NoError(t, r.Kill(7, unix.SIGKILL))
	assert.Equal(t, []sentSignal{{-7, unix.SIGCONT}, {-7, unix.SIGKILL}}, killer.sent)
}

func TestRelay_ReapQueuesEverything(t *testing.T) {
	r, children, _ := newFakeRelay()

	assert.Equal(t, 0, r.Reap())
	assert.Empty(t, r.Drain())

	children.add(
		Event{Pid: 10, Status: exited(0)},
		Event{Pid: 11, Status: stoppedBy(int(unix.SIGTSTP))},
	)
	assert.Equal(t, 2, r.Reap())

	select {
	case <-r.Ready():
	default:
		t.Fatal("expected ready notification")
	}

	events := r.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, 10, events[0].Pid)
	assert.Equal(t, 11, events[1].Pid)
	assert.Empty(t, r.Drain())
}

func TestRelay_HoldReaping(t *testing.T) {
	r, children, _ := newFakeRelay()
	children.add(Event{Pid: 10, Status: exited(0)})

	release := r.HoldReaping()
	reaped := make(chan int)
	go func() {
		reaped <- r.Reap()
	}()

	select {
	case <-reaped:
		t.Fatal("reaped while held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	assert.Equal(t, 1, <-reaped)
}

func TestRelay_WaitGroup(t *testing.T) {
	t.Run("all members exit", func(t *testing.T) {
		r, children, _ := newFakeRelay()
		children.add(
			Event{Pid: 10, Status: exited(0)},
			Event{Pid: 99, Status: exited(1)},
			Event{Pid: 11, Status: signaled(int(unix.SIGPIPE))},
		)

		var other []Event
		result := r.WaitGroup([]int{10, 11}, func(ev Event) {
			other = append(other, ev)
		})

		assert.False(t, result.Stopped)
		assert.Empty(t, result.Alive)
		assert.Equal(t, 11, result.Last.Pid)
		require.Len(t, other, 1)
		assert.Equal(t, 99, other[0].Pid)
	})

	t.Run("group stops", func(t *testing.T) {
		r, children, _ := newFakeRelay()
		children.add(
			Event{Pid: 10, Status: stoppedBy(int(unix.SIGTSTP))},
			Event{Pid: 11, Status: exited(0)},
			Event{Pid: 12, Status: stoppedBy(int(unix.SIGTSTP))},
		)

		result := r.WaitGroup([]int{10, 11, 12}, nil)
		assert.True(t, result.Stopped)
		assert.Equal(t, []int{10, 12}, result.Alive)
	})

	t.Run("blocks until events arrive", func(t *testing.T) {
		r, children, _ := newFakeRelay()

		done := make(chan WaitResult)
		go func() {
			done <- r.WaitGroup([]int{10}, nil)
		}()

		select {
		case <-done:
			t.Fatal("returned before the member changed state")
		case <-time.After(50 * time.Millisecond):
		}

		children.add(Event{Pid: 10, Status: exited(0)})
		r.Reap()

		result := <-done
		assert.False(t, result.Stopped)
	})
}
