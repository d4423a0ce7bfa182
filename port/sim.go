//go:build !tinygo

package port

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// Sim is a simulated port for running the kernel as a host process.
//
// The hardware model is reproduced in software: one goroutine per task
// frame, with a single CPU token guaranteeing exactly one thread-mode
// context at any instant, and an interrupt mutex serializing tick (ISR)
// context against thread context. Interrupts are delivered at
// interruptible points — Yield, Idle and Checkpoint — the software
// analogue of an exception pending until BASEPRI unmasks it. A
// compute-bound task that never reaches an interruptible point is never
// preempted; busy host demos call Checkpoint in their loop.
//
// Ticks are injected by calling Tick, either manually (deterministic
// tests) or from the real-time ticker started by StartTick when AutoTick
// is set.
type Sim struct {
	hooks Hooks

	// irq is the interrupt mask: held for every critical section, thread
	// or ISR variant alike.
	irq sync.Mutex

	pend     atomic.Bool // context switch pended
	tickBusy atomic.Bool // tick handler (or a timer callback) is executing

	running *simFrame // frame holding the CPU token; guarded by irq
	inWFI   bool      // running frame is parked in Idle; guarded by irq

	wfiWake chan struct{}
	kill    chan struct{}
	stopped sync.Once

	autoTick   bool
	tickCancel chan struct{}
	tickWG     sync.WaitGroup
}

// SimConfig controls the simulation. The zero value is a manually ticked
// simulation suitable for tests.
type SimConfig struct {
	// AutoTick drives the tick from a real-time ticker at the rate passed
	// to StartTick.
	AutoTick bool
}

// NewSim returns a simulated port.
func NewSim(cfg SimConfig) *Sim {
	return &Sim{
		wfiWake:    make(chan struct{}, 1),
		kill:       make(chan struct{}),
		tickCancel: make(chan struct{}),
		autoTick:   cfg.AutoTick,
	}
}

func (s *Sim) Bind(h Hooks) { s.hooks = h }

func (s *Sim) Init() error {
	if s.hooks.Tick == nil || s.hooks.SwitchContext == nil || s.hooks.CurrentFrame == nil {
		return ErrNotImplemented
	}
	return nil
}

// StartTick starts the real-time tick driver when AutoTick is configured.
// Manually ticked simulations ignore the call.
func (s *Sim) StartTick(hz uint32) {
	if !s.autoTick || hz == 0 {
		return
	}
	d := time.Second / time.Duration(hz)
	if d <= 0 {
		d = time.Millisecond
	}
	s.tickWG.Add(1)
	go func() {
		defer s.tickWG.Done()
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.Tick()
			case <-s.tickCancel:
				return
			case <-s.kill:
				return
			}
		}
	}()
}

// Tick injects one tick interrupt. It may be called from any goroutine
// except a task context.
func (s *Sim) Tick() {
	s.tickBusy.Store(true)
	resched := s.hooks.Tick()
	s.tickBusy.Store(false)
	if resched {
		s.pend.Store(true)
	}
	// An interrupt always wakes WFI, resched or not.
	select {
	case s.wfiWake <- struct{}{}:
	default:
	}
}

// BuildInitialFrame builds the simulated context. The stack bytes are real
// (the kernel's canary checks operate on them); the returned stack pointer
// mirrors the hardware frame layout but thread state lives in the frame.
func (s *Sim) BuildInitialFrame(stack []byte, fn TaskFunc, param any) (Frame, uintptr) {
	top := uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))
	top &^= 7
	// Exception frame (8 words) plus callee-saved R4-R11 (8 words).
	sp := top - 16*4
	return newSimFrame(fn, param), sp
}

// StartFirstTask hands the CPU to the current frame. The boot context
// parks until the simulation is stopped.
func (s *Sim) StartFirstTask() {
	f, _ := s.hooks.CurrentFrame().(*simFrame)
	if f == nil {
		return
	}
	s.irq.Lock()
	s.running = f
	s.irq.Unlock()
	f.resume(s)
	<-s.kill
}

func (s *Sim) EnterCritical() { s.irq.Lock() }

// ExitCritical drops the mask without taking a pended switch: sections
// are entered from host goroutines too (monitor consoles, tests), and
// only a task context may hand the CPU token over. Pended switches fire
// at Yield, Idle and Checkpoint.
func (s *Sim) ExitCritical() {
	s.irq.Unlock()
}

func (s *Sim) EnterCriticalISR() uintptr {
	s.irq.Lock()
	return 0
}

func (s *Sim) ExitCriticalISR(mask uintptr) {
	_ = mask
	s.irq.Unlock()
}

// Yield performs the pended switch immediately. Task context only.
func (s *Sim) Yield() {
	s.pend.Store(true)
	s.switchNow()
}

// Idle is the simulated wait-for-interrupt.
func (s *Sim) Idle() {
	s.irq.Lock()
	s.inWFI = true
	s.irq.Unlock()
	select {
	case <-s.wfiWake:
	case <-s.kill:
		runtime.Goexit()
	}
	s.irq.Lock()
	s.inWFI = false
	s.irq.Unlock()
	if s.pend.Load() {
		s.switchNow()
	}
}

// Checkpoint takes a pended switch if one is outstanding. Busy-loop demo
// tasks call it to stay preemptible.
func (s *Sim) Checkpoint() {
	if s.pend.Load() && !s.tickBusy.Load() {
		s.switchNow()
	}
}

// switchNow runs the context-switch exception in the calling task context:
// ask the kernel for the next task, hand the CPU token over and park.
func (s *Sim) switchNow() {
	// A stopped simulation retires the calling task context instead of
	// letting it spin against a dead dispatcher.
	select {
	case <-s.kill:
		runtime.Goexit()
	default:
	}
	s.pend.Store(false)
	s.hooks.SwitchContext()
	nf, _ := s.hooks.CurrentFrame().(*simFrame)
	s.irq.Lock()
	old := s.running
	if nf == old || nf == nil {
		s.irq.Unlock()
		return
	}
	s.running = nf
	s.irq.Unlock()
	nf.resume(s)
	if old != nil {
		old.park(s)
	}
}

// Quiesce blocks until the running frame is parked in Idle with no switch
// pended, i.e. every task is blocked and the idle task holds the CPU. It
// reports false if the simulation does not settle within the timeout.
func (s *Sim) Quiesce(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		s.irq.Lock()
		settled := s.inWFI && !s.pend.Load()
		s.irq.Unlock()
		if settled {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Microsecond)
	}
}

// Stop tears the simulation down: parked task goroutines exit, the boot
// context returns and the tick driver stops. For tests.
func (s *Sim) Stop() {
	s.stopped.Do(func() {
		close(s.kill)
		close(s.tickCancel)
	})
	s.tickWG.Wait()
}
