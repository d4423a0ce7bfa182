package kern

import "ember/internal/rlog"

// TimerMode selects one-shot or auto-reload behaviour.
type TimerMode uint8

const (
	TimerOneShot TimerMode = iota
	TimerAutoReload
)

// TimerFunc is a software-timer callback. Callbacks execute in the tick
// handler's interrupt context with the critical section released; they
// must not call blocking kernel APIs.
type TimerFunc func(t *Timer, param any)

// Timer is a software timer driven by the kernel tick. Active timers live
// on one list sorted by absolute expiry, compared wrap-safe.
type Timer struct {
	name   string
	period uint32
	expiry uint32
	mode   TimerMode
	cb     TimerFunc
	param  any
	active bool
	listed bool
	next   *Timer
}

// timerList is the sorted active-timer list. Mutation uses the ISR-safe
// critical section because the tick path walks it.
type timerList struct {
	head *Timer
}

// insert keeps ascending expiry order; equal expiries keep FIFO order.
func (l *timerList) insert(t *Timer) {
	var prev *Timer
	cur := l.head
	for cur != nil && !tickBefore(t.expiry, cur.expiry) {
		prev = cur
		cur = cur.next
	}
	t.next = cur
	t.listed = true
	if prev == nil {
		l.head = t
	} else {
		prev.next = t
	}
}

func (l *timerList) remove(t *Timer) {
	if l.head == t {
		l.head = t.next
		t.next = nil
		t.listed = false
		return
	}
	for cur := l.head; cur != nil; cur = cur.next {
		if cur.next == t {
			cur.next = t.next
			t.next = nil
			t.listed = false
			return
		}
	}
}

// NewTimer creates a software timer. It starts stopped.
func NewTimer(name string, periodTicks uint32, mode TimerMode, cb TimerFunc, param any) (*Timer, Status) {
	if cb == nil || periodTicks == 0 {
		return nil, StatusInvalidParam
	}
	t := &Timer{
		name:   name,
		period: periodTicks,
		mode:   mode,
		cb:     cb,
		param:  param,
	}
	rlog.Debugf("timer %q created: period=%d mode=%d", name, periodTicks, mode)
	return t, StatusSuccess
}

// Name returns the timer name.
func (t *Timer) Name() string { return t.name }

// Active reports whether the timer is running.
func (t *Timer) Active() bool {
	mask := k.p.EnterCriticalISR()
	a := t.active
	k.p.ExitCriticalISR(mask)
	return a
}

// Start arms the timer for now + period. An already running timer is
// restarted.
func (t *Timer) Start() Status {
	if t == nil {
		return StatusInvalidParam
	}
	mask := k.p.EnterCriticalISR()
	if t.active {
		k.timers.remove(t)
	}
	t.expiry = k.tick + t.period
	t.active = true
	k.timers.insert(t)
	k.p.ExitCriticalISR(mask)
	return StatusSuccess
}

// Stop disarms the timer.
func (t *Timer) Stop() Status {
	if t == nil {
		return StatusInvalidParam
	}
	mask := k.p.EnterCriticalISR()
	if t.active {
		k.timers.remove(t)
		t.active = false
	}
	k.p.ExitCriticalISR(mask)
	return StatusSuccess
}

// ChangePeriod updates the period. A running timer is re-armed for
// now + period.
func (t *Timer) ChangePeriod(periodTicks uint32) Status {
	if t == nil || periodTicks == 0 {
		return StatusInvalidParam
	}
	mask := k.p.EnterCriticalISR()
	t.period = periodTicks
	if t.active {
		k.timers.remove(t)
		t.expiry = k.tick + t.period
		k.timers.insert(t)
	}
	k.p.ExitCriticalISR(mask)
	return StatusSuccess
}

// Delete stops the timer. The record is not reclaimed; the timer must not
// be started again.
func (t *Timer) Delete() Status {
	if t == nil {
		return StatusInvalidParam
	}
	t.Stop()
	t.cb = nil
	return StatusSuccess
}

// timerServiceLocked fires every expired timer. Called from the tick
// handler with the ISR critical section held; the section is released
// around each callback and the (possibly new) mask is returned.
func timerServiceLocked(mask uintptr) uintptr {
	for k.timers.head != nil && tickReached(k.tick, k.timers.head.expiry) {
		t := k.timers.head
		k.timers.head = t.next
		t.next = nil
		t.listed = false

		cb, param := t.cb, t.param
		k.p.ExitCriticalISR(mask)
		if cb != nil {
			cb(t, param)
		}
		mask = k.p.EnterCriticalISR()

		if t.listed {
			// The callback re-armed the timer; its new expiry stands.
			continue
		}

		if t.mode == TimerAutoReload && t.cb != nil {
			// A callback that overran the period fires once and realigns
			// to the first expiry strictly after now: whole periods, no
			// drift, no re-fire storm.
			for !tickBefore(k.tick, t.expiry) {
				t.expiry += t.period
			}
			if t.active {
				k.timers.insert(t)
			}
		} else {
			t.active = false
		}
	}
	return mask
}
