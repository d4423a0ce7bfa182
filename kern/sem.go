package kern

import "ember/internal/rlog"

// Semaphore is a counting semaphore with a priority-ordered wait list. A
// max count of 0 means unbounded; a max of 1 is a binary semaphore.
type Semaphore struct {
	count   uint32
	max     uint32
	waiters waitList
}

// NewSemaphore returns a semaphore with the given initial and maximum
// counts.
func NewSemaphore(initial, max uint32) (*Semaphore, Status) {
	if max != 0 && initial > max {
		return nil, StatusInvalidParam
	}
	return &Semaphore{count: initial, max: max}, StatusSuccess
}

// Wait takes the semaphore, blocking up to timeout ticks when the count
// is zero.
func (s *Semaphore) Wait(timeout uint32) Status {
	if s == nil {
		return StatusInvalidParam
	}

	k.p.EnterCritical()

	if s.count > 0 {
		s.count--
		k.p.ExitCritical()
		return StatusSuccess
	}

	if timeout == NoWait {
		k.p.ExitCritical()
		return StatusTimeout
	}

	cur := k.current
	if cur == nil {
		k.p.ExitCritical()
		rlog.Errorf("semaphore wait with no current task")
		return StatusInvalidState
	}

	cur.blockedOn = s
	cur.blockedTag = SyncSemaphore
	s.waiters.insert(cur)
	blockCurrentLocked(timeout)

	k.p.ExitCritical()
	k.p.Yield()

	// Resumed: a signal cleared the blocked-on reference, otherwise the
	// wait timed out.
	k.p.EnterCritical()
	if cur.blockedOn == s {
		s.waiters.remove(cur)
		k.p.ExitCritical()
		return StatusTimeout
	}
	k.p.ExitCritical()
	return StatusSuccess
}

// TryWait takes the semaphore only if that is possible without blocking.
func (s *Semaphore) TryWait() Status {
	return s.Wait(NoWait)
}

// Signal gives the semaphore. A waiting task consumes the give directly
// — the highest-priority waiter wakes and the count stays untouched.
// Without waiters the count rises, up to the maximum.
func (s *Semaphore) Signal() Status {
	if s == nil {
		return StatusInvalidParam
	}

	k.p.EnterCritical()

	if w := s.waiters.pop(); w != nil {
		preempt := unblockLocked(w)
		k.p.ExitCritical()
		if preempt && !inTickContext() {
			k.p.Yield()
		}
		return StatusSuccess
	}

	if s.max != 0 && s.count >= s.max {
		k.p.ExitCritical()
		rlog.Errorf("semaphore overflow: count=%d max=%d", s.count, s.max)
		return StatusOverflow
	}
	s.count++
	k.p.ExitCritical()
	return StatusSuccess
}

// Count returns the current count.
func (s *Semaphore) Count() uint32 {
	k.p.EnterCritical()
	c := s.count
	k.p.ExitCritical()
	return c
}
