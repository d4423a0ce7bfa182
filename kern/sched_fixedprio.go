package kern

import "math/bits"

// fixedPrioSched is preemptive static-priority scheduling: one FIFO ready
// list per priority level plus a bitmap over levels so selection is a
// single count-leading-zeros.
type fixedPrioSched struct {
	ready   [MaxPriorities]taskList
	mask    uint32
	delayed delayQueue
}

func newFixedPrioSched() *schedOps {
	s := &fixedPrioSched{}
	return &schedOps{
		init:           s.reset,
		pickNext:       s.pickNext,
		shouldPreempt:  s.shouldPreempt,
		onYield:        func(*Task) {},
		readyPush:      s.readyPush,
		readyRemove:    s.readyRemove,
		delayedPush:    s.delayed.push,
		delayedRemove:  s.delayed.remove,
		advanceDelayed: func() { s.delayed.advance(s.readyPush) },
		stats:          s.stats,
	}
}

func (s *fixedPrioSched) reset() {
	*s = fixedPrioSched{}
}

func (s *fixedPrioSched) pickNext() *Task {
	if s.mask == 0 {
		return nil
	}
	top := uint8(bits.Len32(s.mask) - 1)
	return s.ready[top].head
}

func (s *fixedPrioSched) shouldPreempt(newly *Task) bool {
	if newly == nil || k.current == nil {
		return false
	}
	return newly != k.current && newly.prio > k.current.prio
}

func (s *fixedPrioSched) readyPush(t *Task) {
	p := t.prio
	t.readyPrio = p
	s.ready[p].pushBack(t)
	s.mask |= 1 << p
}

func (s *fixedPrioSched) readyRemove(t *Task) {
	// Removal uses the priority recorded at push time: a boost while
	// Ready re-queues through remove+push, so the record never goes
	// stale.
	p := t.readyPrio
	s.ready[p].remove(t)
	if s.ready[p].empty() {
		s.mask &^= 1 << p
	}
}

func (s *fixedPrioSched) stats() SchedStats {
	n := 0
	for i := range s.ready {
		n += s.ready[i].count
	}
	return SchedStats{
		Policy:       PolicyFixedPriority,
		ReadyCount:   n,
		DelayedCount: s.delayed.count(),
		ReadyMask:    s.mask,
	}
}
