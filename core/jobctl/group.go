package jobctl

// WaitResult is the outcome of waiting on a foreground group.
type WaitResult struct {
	// Stopped is set if the group stopped rather than terminated.
	Stopped bool
	// Alive holds the members that haven't terminated, in launch order.
	Alive []int
	// Last is the event of the last member to change state.
	Last Event
}

// WaitGroup blocks until every member of a group has stopped or terminated.
// Events for processes outside the group are passed to other in the order
// they were reaped.
func (r *Relay) WaitGroup(members []int, other func(Event)) WaitResult {
	pending := make(map[int]bool, len(members))
	for _, pid := range members {
		pending[pid] = true
	}
	alive := make(map[int]bool, len(members))
	for pid := range pending {
		alive[pid] = true
	}

	var result WaitResult

	// Children may have changed state before SIGCHLD was delivered.
	r.Reap()
	for len(pending) > 0 {
		for _, ev := range r.Drain() {
			if !alive[ev.Pid] {
				if other != nil {
					other(ev)
				}
				continue
			}

			switch {
			case ev.Terminated():
				delete(alive, ev.Pid)
				delete(pending, ev.Pid)
			case ev.Status.Stopped():
				delete(pending, ev.Pid)
			default:
				continue
			}
			result.Last = ev
		}

		if len(pending) == 0 {
			break
		}
		<-r.Ready()
	}

	for _, pid := range members {
		if alive[pid] {
			result.Alive = append(result.Alive, pid)
		}
	}
	result.Stopped = len(result.Alive) > 0
	return result
}
