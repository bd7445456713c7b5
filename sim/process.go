package sim

// Process is a cancellable chain of timed suspensions on the Clock.
// A behavior never blocks: it hands the process a duration and the
// continuation to resume with, and the clock calls back when the wait elapses.
// Stop cancels the outstanding wait so the continuation never runs.
type Process struct {
	name    string
	clock   *Clock
	pending *event
	stopped bool
	onExit  func(*Process)
}

func newProcess(name string, clock *Clock) *Process {
	return &Process{name: name, clock: clock}
}

// Name returns the behavior name this process runs.
func (p *Process) Name() string {
	return p.name
}

// Alive reports whether the process has neither been stopped nor finished.
func (p *Process) Alive() bool {
	return !p.stopped
}

// Wait suspends the process for d hours (d < 0 is treated as 0) and then
// invokes resume. A zero wait still goes through the event queue, so other
// events scheduled for the same instant run first.
func (p *Process) Wait(d float64, resume func()) {
	if p.stopped {
		return
	}
	p.pending = p.clock.schedule(d, func() {
		p.pending = nil
		if p.stopped {
			return
		}
		resume()
	})
}

// Stop cancels any in-flight suspension. Side effects committed before the
// call are kept. Safe to call repeatedly.
func (p *Process) Stop() {
	if p.stopped {
		return
	}
	p.stopped = true
	if p.pending != nil {
		p.clock.cancel(p.pending)
		p.pending = nil
	}
}

// finish marks a process that ended on its own (its policy said stop).
func (p *Process) finish() {
	if p.stopped {
		return
	}
	p.stopped = true
	if p.onExit != nil {
		p.onExit(p)
	}
}
