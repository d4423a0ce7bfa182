package kern

// schedOps is the capability set every scheduling policy exposes: an
// explicit table of function references bound once at kernel init. Policy
// is fixed for the lifetime of the kernel; there is no runtime plugin
// registration.
//
// Every operation runs under the kernel critical section.
type schedOps struct {
	// init resets policy-private state.
	init func()

	// pickNext chooses the task that should run next without removing it
	// from its ready list.
	pickNext func() *Task

	// shouldPreempt is called after a task becomes Ready and from the
	// tick path; it reports whether the running task must give way.
	shouldPreempt func(newlyReady *Task) bool

	// onYield is informed whenever the completed task leaves the CPU in
	// a switch (yield, time-slice end or blocking); a task that was still
	// Running has been pushed back to the ready list by then.
	onYield func(completed *Task)

	readyPush   func(*Task)
	readyRemove func(*Task)

	// delayedPush enqueues with wake tick = now + ticks.
	delayedPush   func(t *Task, ticks uint32)
	delayedRemove func(*Task)

	// advanceDelayed moves every task whose wake tick is reached into
	// Ready, preserving their relative order.
	advanceDelayed func()

	// stats snapshots policy counters for the debug surfaces.
	stats func() SchedStats
}

// SchedStats is a policy state snapshot for the debug and monitor tools.
type SchedStats struct {
	Policy       Policy
	ReadyCount   int
	DelayedCount int
	ReadyMask    uint32 // fixed-priority only
	SliceLeft    uint32 // round-robin only
}

var schedRegistry = []struct {
	policy Policy
	build  func() *schedOps
}{
	{PolicyFixedPriority, newFixedPrioSched},
	{PolicyCooperative, newCoopSched},
	{PolicyRoundRobin, newRoundRobinSched},
}

func bindScheduler(p Policy) *schedOps {
	for _, e := range schedRegistry {
		if e.policy == p {
			ops := e.build()
			ops.init()
			return ops
		}
	}
	return nil
}

// delayQueue is the delayed-list discipline every policy shares: a
// doubly-linked list sorted by absolute wake tick ascending. advance walks
// from the head and stops at the first unexpired entry.
type delayQueue struct {
	list taskList
}

func (d *delayQueue) push(t *Task, ticks uint32) {
	t.wakeTick = k.tick + ticks
	d.list.insertByWake(t)
}

func (d *delayQueue) remove(t *Task) {
	d.list.remove(t)
}

func (d *delayQueue) advance(readyPush func(*Task)) {
	for d.list.head != nil && tickReached(k.tick, d.list.head.wakeTick) {
		t := d.list.popFront()
		t.state = StateReady
		readyPush(t)
	}
}

func (d *delayQueue) count() int { return d.list.count }
