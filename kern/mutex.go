package kern

import "ember/internal/rlog"

// Mutex is a recursive mutual-exclusion lock with a priority-ordered wait
// list and transitive priority inheritance. Ownership transfers directly
// to the highest-priority waiter on unlock, under the same critical
// section that removes the waiter from the list, so no third task can
// steal the lock between wake and acquire.
type Mutex struct {
	owner     *Task
	recursion uint8
	waiters   waitList
}

// NewMutex returns an initialized mutex.
func NewMutex() *Mutex {
	return &Mutex{}
}

// Lock acquires the mutex, blocking up to timeout ticks. NoWait tries
// once; MaxWait blocks forever. Recursive locking by the owner nests up
// to the recursion cap.
func (m *Mutex) Lock(timeout uint32) Status {
	if m == nil {
		return StatusInvalidParam
	}

	k.p.EnterCritical()

	cur := k.current
	if cur == nil {
		k.p.ExitCritical()
		rlog.Errorf("mutex lock with no current task")
		return StatusInvalidState
	}

	// Fast path: free.
	if m.owner == nil {
		m.owner = cur
		m.recursion = 1
		k.p.ExitCritical()
		return StatusSuccess
	}

	// Recursive lock.
	if m.owner == cur {
		if m.recursion >= maxRecursion {
			k.p.ExitCritical()
			rlog.Errorf("mutex recursion cap reached by %q", cur.name)
			return StatusGeneral
		}
		m.recursion++
		k.p.ExitCritical()
		return StatusSuccess
	}

	if timeout == NoWait {
		k.p.ExitCritical()
		return StatusTimeout
	}

	m.inheritLocked(cur)

	cur.blockedOn = m
	cur.blockedTag = SyncMutex
	m.waiters.insert(cur)
	blockCurrentLocked(timeout)

	k.p.ExitCritical()
	k.p.Yield()

	// Resumed: either the unlocker transferred ownership (and cleared the
	// blocked-on reference), or the delay expired.
	k.p.EnterCritical()
	if cur.blockedOn == m {
		m.waiters.remove(cur)
		k.p.ExitCritical()
		return StatusTimeout
	}
	k.p.ExitCritical()
	return StatusSuccess
}

// TryLock acquires the mutex only if that is possible without blocking.
func (m *Mutex) TryLock() Status {
	return m.Lock(NoWait)
}

// Unlock releases the mutex. Only the owner may unlock; recursive locks
// unwind one level per call. The final release restores the owner's base
// priority and hands the lock to the highest-priority waiter.
func (m *Mutex) Unlock() Status {
	if m == nil {
		return StatusInvalidParam
	}

	k.p.EnterCritical()

	cur := k.current
	if cur == nil || m.owner != cur {
		k.p.ExitCritical()
		rlog.Errorf("mutex unlock by non-owner")
		return StatusInvalidState
	}

	if m.recursion > 1 {
		m.recursion--
		k.p.ExitCritical()
		return StatusSuccess
	}

	// Final release: drop any inherited boost first.
	if cur.prio != cur.basePrio {
		cur.prio = cur.basePrio
	}

	if w := m.waiters.pop(); w != nil {
		m.owner = w
		m.recursion = 1
		preempt := unblockLocked(w)
		k.p.ExitCritical()
		if preempt && !inTickContext() {
			k.p.Yield()
		}
		return StatusSuccess
	}

	m.owner = nil
	m.recursion = 0
	k.p.ExitCritical()
	return StatusSuccess
}

// Owner returns the current owner, or nil when free.
func (m *Mutex) Owner() *Task {
	k.p.EnterCritical()
	t := m.owner
	k.p.ExitCritical()
	return t
}

// inheritLocked applies transitive priority inheritance: walk the chain
// of mutex owners from this mutex, raising each owner that sits below the
// boost level. A boost that meets an already-higher owner adopts that
// owner's effective height for the rest of the walk. The walk is bounded;
// exceeding the bound means an ownership cycle, which is recorded and
// abandoned (deadlock prevention is the application's problem).
func (m *Mutex) inheritLocked(waiter *Task) {
	boost := waiter.prio
	target := m.owner
	depth := 0
	for target != nil {
		if depth >= maxInheritDepth {
			fault(FaultInheritDepth, waiter)
			return
		}
		if target.prio < boost {
			boostLocked(target, boost)
		} else {
			boost = target.prio
		}
		if target.state != StateBlocked || target.blockedTag != SyncMutex {
			return
		}
		next, ok := target.blockedOn.(*Mutex)
		if !ok || next == nil {
			return
		}
		target = next.owner
		depth++
	}
}

// boostLocked raises a task's effective priority, re-filing it wherever
// the old priority determined its position: its ready list under the
// fixed-priority policy, or the wait list of the mutex it is blocked on.
func boostLocked(t *Task, prio uint8) {
	switch {
	case t.state == StateReady:
		k.sched.readyRemove(t)
		t.prio = prio
		k.sched.readyPush(t)
	case t.state == StateBlocked && t.blockedTag == SyncMutex:
		if next, ok := t.blockedOn.(*Mutex); ok && next != nil {
			next.waiters.remove(t) // clears the blocked-on reference
			t.prio = prio
			t.blockedOn = next
			t.blockedTag = SyncMutex
			next.waiters.insert(t)
			return
		}
		t.prio = prio
	default:
		t.prio = prio
	}
}
