package kern

// coopSched never preempts: tasks run until they block or yield. The
// ready list is a single FIFO; pushing a yielded task back onto the tail
// is what rotates the queue across yields.
type coopSched struct {
	ready   taskList
	delayed delayQueue
}

func newCoopSched() *schedOps {
	s := &coopSched{}
	return &schedOps{
		init:           s.reset,
		pickNext:       func() *Task { return s.ready.head },
		shouldPreempt:  func(*Task) bool { return false },
		onYield:        func(*Task) {},
		readyPush:      s.ready.pushBack,
		readyRemove:    s.ready.remove,
		delayedPush:    s.delayed.push,
		delayedRemove:  s.delayed.remove,
		advanceDelayed: func() { s.delayed.advance(s.ready.pushBack) },
		stats:          s.stats,
	}
}

func (s *coopSched) reset() {
	*s = coopSched{}
}

func (s *coopSched) stats() SchedStats {
	return SchedStats{
		Policy:       PolicyCooperative,
		ReadyCount:   s.ready.count,
		DelayedCount: s.delayed.count(),
	}
}
