package kern

// tickHandler advances kernel time. The port calls it from the tick
// interrupt; everything here runs with interrupts masked at the kernel
// threshold except the timer callbacks, which run with the section
// released (§ timer service). The return value tells the port whether to
// pend a context switch.
func tickHandler() bool {
	if k.sched == nil {
		return false
	}

	mask := k.p.EnterCriticalISR()
	k.inTick.Store(true)

	k.tick++
	if k.current != nil {
		k.current.runTicks++
	}

	mask = timerServiceLocked(mask)

	k.sched.advanceDelayed()

	resched := false
	if k.state == KernelRunning {
		if next := k.sched.pickNext(); next != nil {
			resched = k.sched.shouldPreempt(next)
		}
		// A current task that was suspended from outside task context is
		// still on the CPU; force it off.
		if k.current != nil && k.current.state != StateRunning {
			resched = true
		}
	}

	k.inTick.Store(false)
	k.p.ExitCriticalISR(mask)
	return resched
}
