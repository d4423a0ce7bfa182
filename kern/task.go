package kern

import (
	"encoding/binary"

	"ember/internal/rlog"
	"ember/port"
)

// TaskState is a task's execution state.
type TaskState uint8

const (
	StateReady TaskState = iota
	StateRunning
	StateBlocked
	StateSuspended
	StateDeleted
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateSuspended:
		return "suspended"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// SyncTag identifies what kind of object a blocked task is waiting on.
type SyncTag uint8

const (
	SyncNone SyncTag = iota
	SyncMutex
	SyncSemaphore
	SyncQueue
)

// Task is the per-task record.
//
// savedSP must stay the first field: the context-switch trampoline
// dereferences the current-task pointer and then the first word to find
// the saved stack pointer.
type Task struct {
	savedSP uintptr

	id    uint8
	name  string
	fn    port.TaskFunc
	param any

	state     TaskState
	prio      uint8 // effective, may be boosted
	basePrio  uint8 // restored on final mutex release
	readyPrio uint8 // level the task was filed under when made Ready

	stack []byte
	frame port.Frame

	wakeTick  uint32
	sliceLeft uint32

	// Scheduling link: at most one scheduler-owned list (ready or delayed).
	schedNext, schedPrev *Task

	// Wait link: at most one sync-object wait list while Blocked.
	waitNext   *Task
	blockedOn  any
	blockedTag SyncTag

	runTicks uint64
}

// ID returns the numeric task id.
func (t *Task) ID() uint8 { return t.id }

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// State returns the task state. A nil handle reports Deleted.
func (t *Task) State() TaskState {
	if t == nil {
		return StateDeleted
	}
	k.p.EnterCritical()
	s := t.state
	k.p.ExitCritical()
	return s
}

// Priority returns the effective priority.
func (t *Task) Priority() uint8 {
	if t == nil {
		return 0
	}
	k.p.EnterCritical()
	p := t.prio
	k.p.ExitCritical()
	return p
}

// BasePriority returns the priority the task was created with.
func (t *Task) BasePriority() uint8 {
	k.p.EnterCritical()
	p := t.basePrio
	k.p.ExitCritical()
	return p
}

// RunTicks returns the number of ticks the task has been credited with.
func (t *Task) RunTicks() uint64 {
	k.p.EnterCritical()
	n := t.runTicks
	k.p.ExitCritical()
	return n
}

// StackSize returns the stack region size in bytes.
func (t *Task) StackSize() int { return len(t.stack) }

func (t *Task) writeCanary() {
	binary.LittleEndian.PutUint32(t.stack[:4], StackCanary)
}

func (t *Task) canaryIntact() bool {
	return binary.LittleEndian.Uint32(t.stack[:4]) == StackCanary
}

// CreateTask allocates a task record and stack, builds the initial frame
// and makes the task Ready. A stackSize of 0 selects the default; any
// smaller request is clamped to the minimum and rounded up to the
// alignment unit.
func CreateTask(fn port.TaskFunc, name string, stackSize int, param any, priority uint8) (*Task, Status) {
	if fn == nil {
		rlog.Errorf("task create: nil entry function")
		return nil, StatusInvalidParam
	}
	if priority >= MaxPriorities {
		rlog.Errorf("task create: priority %d out of range", priority)
		return nil, StatusInvalidParam
	}
	if k.state == KernelInactive {
		return nil, StatusInvalidState
	}

	if stackSize == 0 {
		stackSize = DefaultStackSize
	}
	if stackSize < MinStackSize {
		stackSize = MinStackSize
	}
	stackSize = alignUp(stackSize)

	k.p.EnterCritical()

	if k.taskCount >= len(k.tasks) {
		k.p.ExitCritical()
		rlog.Errorf("task create: pool exhausted (%d tasks)", len(k.tasks))
		return nil, StatusNoMemory
	}
	stack := k.mem.alloc(stackSize)
	if stack == nil {
		k.p.ExitCritical()
		rlog.Errorf("task create: arena exhausted, need %d bytes", stackSize)
		return nil, StatusNoMemory
	}

	t := &Task{
		id:        uint8(k.taskCount),
		name:      name,
		fn:        fn,
		param:     param,
		state:     StateReady,
		prio:      priority,
		basePrio:  priority,
		stack:     stack,
		sliceLeft: k.cfg.TimeSliceTicks,
	}
	t.writeCanary()
	t.frame, t.savedSP = k.p.BuildInitialFrame(stack, fn, param)

	k.tasks[k.taskCount] = t
	k.taskCount++
	k.sched.readyPush(t)

	preempt := k.state == KernelRunning && k.sched.shouldPreempt(t)
	k.p.ExitCritical()

	rlog.Infof("task %q created: id=%d prio=%d stack=%d", name, t.id, priority, stackSize)

	if preempt && !inTickContext() {
		k.p.Yield()
	}
	return t, StatusSuccess
}

// Current returns the running task, or nil before the scheduler starts.
func Current() *Task {
	k.p.EnterCritical()
	t := k.current
	k.p.ExitCritical()
	return t
}

// TaskByID looks a task up by its numeric id.
func TaskByID(id uint8) *Task {
	k.p.EnterCritical()
	defer k.p.ExitCritical()
	if int(id) >= k.taskCount {
		return nil
	}
	return k.tasks[id]
}

// TaskByName looks a task up by name.
func TaskByName(name string) *Task {
	k.p.EnterCritical()
	defer k.p.ExitCritical()
	for i := 0; i < k.taskCount; i++ {
		if k.tasks[i].name == name {
			return k.tasks[i]
		}
	}
	return nil
}

// TaskCount returns the number of created tasks, the idle task included.
func TaskCount() int {
	k.p.EnterCritical()
	n := k.taskCount
	k.p.ExitCritical()
	return n
}

// Suspend parks a task until Resume. A task suspending itself is switched
// out immediately; suspending the running task from any other context
// takes effect at the next tick.
func Suspend(t *Task) Status {
	if t == nil {
		return StatusInvalidParam
	}
	k.p.EnterCritical()
	wasRunning := t.state == StateRunning
	switch t.state {
	case StateSuspended:
		k.p.ExitCritical()
		return StatusSuccess
	case StateDeleted:
		k.p.ExitCritical()
		return StatusInvalidState
	case StateBlocked:
		// Timed waits leave the delayed list; a wait-list entry stays so
		// the primitive can clean up, but the task will not be woken
		// while Suspended.
		k.sched.delayedRemove(t)
	case StateReady:
		k.sched.readyRemove(t)
	}
	t.state = StateSuspended
	k.p.ExitCritical()

	if wasRunning && !inTickContext() {
		k.p.Yield()
	}
	return StatusSuccess
}

// Resume makes a Suspended task Ready. Resume is callable from any
// context (a monitor console included), so it never forces an immediate
// switch; a resumed higher-priority task preempts at the next tick's
// scheduling check.
func Resume(t *Task) Status {
	if t == nil {
		return StatusInvalidParam
	}
	k.p.EnterCritical()
	if t.state != StateSuspended {
		k.p.ExitCritical()
		return StatusInvalidState
	}
	readyLocked(t)
	k.p.ExitCritical()
	return StatusSuccess
}

// CheckStack verifies the stack canary. A clobbered canary is a fatal
// condition: it is reported to the fault hook and the call returns
// StatusGeneral.
func CheckStack(t *Task) Status {
	if t == nil {
		return StatusInvalidParam
	}
	k.p.EnterCritical()
	ok := t.canaryIntact()
	k.p.ExitCritical()
	if !ok {
		fault(FaultStackOverflow, t)
		return StatusGeneral
	}
	return StatusSuccess
}

// idleEntry is the body of the kernel idle task: wait for interrupts, and
// under the cooperative policy give the CPU back after every wake.
func idleEntry(any) {
	coop := k.cfg.Scheduler == PolicyCooperative
	for {
		k.p.Idle()
		if coop {
			Yield()
		}
	}
}

// taskExit parks a task whose entry function returned. The record and
// stack are not reclaimed.
func taskExit() {
	k.p.EnterCritical()
	t := k.current
	if t != nil {
		t.state = StateDeleted
		rlog.Infof("task %q exited", t.name)
	}
	k.p.ExitCritical()
	for {
		k.p.Yield()
	}
}
