package kern

import (
	"sync"
	"sync/atomic"

	"ember/internal/rlog"
)

// FaultKind classifies fatal kernel conditions. The kernel logs the fault
// and continues best-effort; a production system installs a handler that
// resets.
type FaultKind uint8

const (
	FaultStackOverflow FaultKind = iota
	FaultNoRunnable
	FaultInheritDepth
	FaultBadTransition
)

func (f FaultKind) String() string {
	switch f {
	case FaultStackOverflow:
		return "stack overflow"
	case FaultNoRunnable:
		return "no runnable task"
	case FaultInheritDepth:
		return "priority inheritance depth exceeded"
	case FaultBadTransition:
		return "invalid state transition"
	default:
		return "unknown fault"
	}
}

// FaultInfo describes a recorded fault.
type FaultInfo struct {
	Kind FaultKind
	Task *Task // may be nil
}

var (
	faultOnce    sync.Once
	faultActive  atomic.Bool
	faultHandler atomic.Value // func(FaultInfo)
)

// Faulted reports whether a fault has been recorded.
func Faulted() bool { return faultActive.Load() }

// SetFaultHandler installs a process-wide fault handler. The handler is
// invoked at most once, on the first fault, and must not call blocking
// kernel APIs.
func SetFaultHandler(fn func(FaultInfo)) {
	faultHandler.Store(fn)
}

func fault(kind FaultKind, t *Task) {
	name := "-"
	if t != nil {
		name = t.name
	}
	rlog.Errorf("fault: %s (task %s)", kind, name)
	faultOnce.Do(func() {
		faultActive.Store(true)
		if v := faultHandler.Load(); v != nil {
			if fn, ok := v.(func(FaultInfo)); ok && fn != nil {
				fn(FaultInfo{Kind: kind, Task: t})
			}
		}
	})
}
