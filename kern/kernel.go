package kern

import (
	"sync/atomic"

	"ember/internal/rlog"
	"ember/port"
)

// KernelState is the lifecycle state of the kernel singleton.
type KernelState uint8

const (
	KernelInactive KernelState = iota
	KernelReady
	KernelRunning
	KernelSuspended
)

// kernelState is the process-wide kernel control block. All mutation
// happens under the port critical section; helpers suffixed Locked assume
// the section is held.
type kernelState struct {
	state KernelState
	p     port.Port
	cfg   Config

	tick    uint32
	current *Task
	next    *Task

	schedSuspended uint8
	inTick         atomic.Bool

	sched *schedOps

	tasks     []*Task
	taskCount int
	idle      *Task

	mem    arena
	timers timerList
}

var k kernelState

// Init brings the kernel up on the given port: binds the scheduler policy,
// installs the port hooks, initializes the arena and creates the idle
// task. Calling Init on an already initialized kernel is an error.
func Init(p port.Port, cfg *Config) Status {
	if p == nil {
		return StatusInvalidParam
	}
	if k.state != KernelInactive {
		rlog.Errorf("kernel init: already initialized")
		return StatusInvalidState
	}

	c := cfg.withDefaults()
	k = kernelState{
		p:     p,
		cfg:   c,
		tasks: make([]*Task, c.MaxTasks),
	}
	k.mem.init(c.ArenaSize)

	k.sched = bindScheduler(c.Scheduler)
	if k.sched == nil {
		k = kernelState{}
		rlog.Errorf("kernel init: unknown scheduler policy %d", c.Scheduler)
		return StatusInvalidParam
	}

	p.Bind(port.Hooks{
		Tick:          tickHandler,
		SwitchContext: switchContext,
		CurrentFrame:  currentFrame,
		TaskExit:      taskExit,
	})
	if err := p.Init(); err != nil {
		k = kernelState{}
		rlog.Errorf("kernel init: port: %v", err)
		return StatusGeneral
	}

	k.state = KernelReady

	idle, st := CreateTask(idleEntry, "idle", MinStackSize, nil, IdlePriority)
	if !st.OK() {
		k = kernelState{}
		return st
	}
	k.idle = idle

	rlog.Infof("kernel ready: policy=%s tick=%dHz tasks=%d arena=%dB",
		c.Scheduler, c.TickHz, c.MaxTasks, c.ArenaSize)
	return StatusSuccess
}

// Start hands control to the first task. On success it does not return.
func Start() Status {
	if k.state != KernelReady {
		return StatusInvalidState
	}

	k.p.EnterCritical()
	first := k.sched.pickNext()
	if first == nil {
		k.p.ExitCritical()
		return StatusGeneral
	}
	k.sched.readyRemove(first)
	first.state = StateRunning
	k.current = first
	k.next = first
	k.state = KernelRunning
	k.p.ExitCritical()

	k.p.StartTick(k.cfg.TickHz)
	k.p.StartFirstTask()

	// Unreachable while the system runs.
	return StatusGeneral
}

// State returns the kernel lifecycle state.
func State() KernelState { return k.state }

// TickCount returns the current tick. The counter wraps; compare ticks
// with signed-difference arithmetic only.
func TickCount() uint32 {
	mask := k.p.EnterCriticalISR()
	t := k.tick
	k.p.ExitCriticalISR(mask)
	return t
}

// DelayTicks blocks the calling task for n ticks. n == 0 is a no-op.
func DelayTicks(n uint32) {
	if n == 0 || k.state != KernelRunning {
		return
	}
	k.p.EnterCritical()
	cur := k.current
	if cur == nil {
		k.p.ExitCritical()
		rlog.Errorf("delay with no current task")
		return
	}
	cur.state = StateBlocked
	k.sched.delayedPush(cur, n)
	k.p.ExitCritical()
	k.p.Yield()
}

// DelayMS blocks the calling task for ms milliseconds, rounding up to at
// least one tick.
func DelayMS(ms uint32) {
	ticks := uint32((uint64(ms)*uint64(k.cfg.TickHz) + 999) / 1000)
	if ticks == 0 {
		ticks = 1
	}
	DelayTicks(ticks)
}

// Yield gives the CPU up voluntarily.
func Yield() {
	if k.state != KernelRunning {
		return
	}
	k.p.Yield()
}

// SchedulerStats snapshots the active policy's counters.
func SchedulerStats() SchedStats {
	k.p.EnterCritical()
	st := k.sched.stats()
	k.p.ExitCritical()
	return st
}

// inTickContext reports whether the caller is executing inside the tick
// handler (including timer callbacks). Preemption requests made there are
// folded into the tick path's own resched decision instead of yielding.
func inTickContext() bool {
	return k.inTick.Load()
}

// readyLocked moves a task to Ready and reports whether it should preempt
// the running task.
func readyLocked(t *Task) bool {
	t.state = StateReady
	k.sched.readyPush(t)
	return k.state == KernelRunning && k.sched.shouldPreempt(t)
}

// blockCurrentLocked marks the running task Blocked, placing it on the
// delayed list when the timeout is finite. The caller exits the critical
// section and yields.
func blockCurrentLocked(timeout uint32) {
	cur := k.current
	cur.state = StateBlocked
	if timeout != MaxWait {
		k.sched.delayedPush(cur, timeout)
	}
}

// unblockLocked wakes a Blocked task: removes it from the delayed list,
// makes it Ready and reports whether it should preempt. Idempotent — a
// task that is not Blocked (already woken, or Suspended meanwhile) is
// left alone.
func unblockLocked(t *Task) bool {
	if t == nil || t.state != StateBlocked {
		return false
	}
	k.sched.delayedRemove(t)
	return readyLocked(t)
}

// switchContext implements the portable half of a context switch. The
// trampoline has already saved the outgoing register frame and stored the
// stack pointer into the outgoing task record; it restores from the new
// current record after this returns.
func switchContext() {
	k.p.EnterCritical()
	if k.schedSuspended > 0 {
		k.p.ExitCritical()
		return
	}

	if cur := k.current; cur != nil {
		// Only a still-Running task is re-queued. Blocked, Suspended and
		// Deleted tasks stay off the ready lists — and so does a task a
		// tick-context wakeup already made Ready between its own block
		// and this switch, which is on its list already.
		if cur.state == StateRunning {
			cur.state = StateReady
			k.sched.readyPush(cur)
		}
		k.sched.onYield(cur)
	}

	next := k.sched.pickNext()
	if next == nil {
		// Idle never blocks, so this is reachable only through state
		// corruption.
		next = k.idle
		if next == nil {
			k.p.ExitCritical()
			fault(FaultNoRunnable, nil)
			return
		}
	}
	k.sched.readyRemove(next)
	next.state = StateRunning
	k.next = next
	k.current = next
	k.p.ExitCritical()
}

// currentFrame hands the port the frame of the task chosen by
// switchContext.
func currentFrame() port.Frame {
	k.p.EnterCritical()
	var f port.Frame
	if k.current != nil {
		f = k.current.frame
	}
	k.p.ExitCritical()
	return f
}
