package kern

// rrSched is FIFO scheduling with tick-driven time slices. Each task gets
// TimeSliceTicks of CPU; when the slice drains and another task is Ready,
// the tick path requests preemption and the task rotates to the tail with
// a fresh slice.
type rrSched struct {
	ready   taskList
	delayed delayQueue

	// lastSliceTick guards the slice decrement: shouldPreempt can be
	// called more than once per tick (ready path and tick path), but the
	// slice burns down exactly once per tick.
	lastSliceTick uint32
}

func newRoundRobinSched() *schedOps {
	s := &rrSched{}
	return &schedOps{
		init:           s.reset,
		pickNext:       func() *Task { return s.ready.head },
		shouldPreempt:  s.shouldPreempt,
		onYield:        s.onYield,
		readyPush:      s.ready.pushBack,
		readyRemove:    s.ready.remove,
		delayedPush:    s.delayed.push,
		delayedRemove:  s.delayed.remove,
		advanceDelayed: func() { s.delayed.advance(s.ready.pushBack) },
		stats:          s.stats,
	}
}

func (s *rrSched) reset() {
	*s = rrSched{lastSliceTick: ^uint32(0)}
}

func (s *rrSched) shouldPreempt(newly *Task) bool {
	cur := k.current
	if cur == nil || newly == nil {
		return false
	}
	if s.lastSliceTick != k.tick {
		s.lastSliceTick = k.tick
		if cur.sliceLeft > 0 {
			cur.sliceLeft--
		}
	}
	return cur.sliceLeft == 0 && !s.ready.empty()
}

func (s *rrSched) onYield(completed *Task) {
	completed.sliceLeft = k.cfg.TimeSliceTicks
}

func (s *rrSched) stats() SchedStats {
	st := SchedStats{
		Policy:       PolicyRoundRobin,
		ReadyCount:   s.ready.count,
		DelayedCount: s.delayed.count(),
	}
	if k.current != nil {
		st.SliceLeft = k.current.sliceLeft
	}
	return st
}
