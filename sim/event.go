package sim

import "container/heap"

// event is a scheduled continuation on the simulation clock.
// Events are ordered by (at, seq): the sequence number is assigned at
// scheduling time, so events for the same instant run in insertion order.
type event struct {
	at       float64 // Simulated time in hours
	seq      int64   // Monotonic scheduling sequence, FIFO tie-breaker
	fn       func()
	canceled bool
	index    int // heap index, maintained by eventQueue
}

// Timestamp returns the simulated time at which the event fires.
func (e *event) Timestamp() float64 {
	return e.at
}

// eventQueue implements heap.Interface and orders events by timestamp,
// then by scheduling sequence.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-PriorityQueue
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	e := x.(*event)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[0 : n-1]
	return item
}

// Clock is the single logical clock of a simulation. Time only advances when
// an event is popped; nothing inside the kernel reads wall-clock time.
//
// Thread-safety: NOT thread-safe. All scheduling happens on the goroutine
// that drives Step/RunUntil.
type Clock struct {
	now   float64
	queue eventQueue
	seq   int64
}

// NewClock creates a clock at time zero with an empty event queue.
func NewClock() *Clock {
	c := &Clock{queue: make(eventQueue, 0)}
	heap.Init(&c.queue)
	return c
}

// Now returns the current simulated time in hours.
func (c *Clock) Now() float64 {
	return c.now
}

// Pending returns the number of live (non-canceled) events in the queue.
func (c *Clock) Pending() int {
	n := 0
	for _, e := range c.queue {
		if !e.canceled {
			n++
		}
	}
	return n
}

// schedule registers fn to run after delay hours. Negative delays are
// treated as zero; the clock never moves backwards.
func (c *Clock) schedule(delay float64, fn func()) *event {
	if delay < 0 {
		delay = 0
	}
	c.seq++
	e := &event{at: c.now + delay, seq: c.seq, fn: fn}
	heap.Push(&c.queue, e)
	return e
}

// cancel removes a scheduled event. Safe to call on fired or canceled events.
func (c *Clock) cancel(e *event) {
	if e == nil || e.canceled {
		return
	}
	e.canceled = true
	if e.index >= 0 && e.index < len(c.queue) && c.queue[e.index] == e {
		heap.Remove(&c.queue, e.index)
	}
}

// peek returns the next live event without removing it.
func (c *Clock) peek() *event {
	for len(c.queue) > 0 {
		if e := c.queue[0]; !e.canceled {
			return e
		}
		heap.Pop(&c.queue)
	}
	return nil
}

// NextAt returns the timestamp of the next live event.
func (c *Clock) NextAt() (float64, bool) {
	e := c.peek()
	if e == nil {
		return 0, false
	}
	return e.at, true
}

// Step pops and executes the next pending event regardless of its time.
// Returns false (and does nothing) when no events are pending.
func (c *Clock) Step() bool {
	e := c.peek()
	if e == nil {
		return false
	}
	heap.Pop(&c.queue)
	c.now = e.at
	e.fn()
	return true
}

// RunUntil executes every event with timestamp <= until, in order, and then
// moves the clock to until. Events scheduled during the run are honoured if
// they fall inside the window. Returns the number of events executed.
// Running out of events is a normal termination, not an error.
func (c *Clock) RunUntil(until float64) int {
	if until < c.now {
		return 0
	}
	executed := 0
	for {
		e := c.peek()
		if e == nil || e.at > until {
			break
		}
		c.Step()
		executed++
	}
	c.now = until
	return executed
}
