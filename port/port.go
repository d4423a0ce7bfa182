// Package port is the only contact point between the kernel core and the
// machine. The portable kernel never touches registers; it maintains the
// saved-stack-pointer invariant on its task records and asks the port to
// pend context switches, mask interrupts and drive the tick.
package port

import "errors"

var ErrNotImplemented = errors.New("not implemented")

// TaskFunc is a task entry point. Task functions normally never return;
// a function that does return is parked by the kernel and never runs again.
type TaskFunc func(param any)

// Frame is an opaque per-task machine context handle. On hardware ports it
// mirrors the saved register frame reachable from the saved stack pointer;
// on the simulated port it carries the goroutine that plays the task.
type Frame any

// Hooks are the kernel entry points a port invokes. The kernel binds them
// before Init; the port never imports the kernel.
type Hooks struct {
	// Tick is the kernel tick handler. The port calls it from the tick
	// interrupt with interrupts masked at the kernel threshold. It reports
	// whether a context switch must be pended.
	Tick func() bool

	// SwitchContext selects the next task to run. The port calls it from
	// the context-switch exception after saving the outgoing frame and
	// before restoring the incoming one.
	SwitchContext func()

	// CurrentFrame returns the frame of the task chosen by SwitchContext.
	CurrentFrame func() Frame

	// TaskExit is called on the rare path where a task entry function
	// returns. It must not return.
	TaskExit func()
}

// Port is the machine-specific layer of the kernel.
//
// Critical sections mask interrupts at or below the kernel priority
// threshold. The ISR variants return a saved mask and accept it on exit so
// they can be used from interrupt handlers. Hardware ports implement
// nestable sections; the kernel core enters each section exactly once per
// entry point.
type Port interface {
	// Bind installs the kernel hooks. Must be called before Init.
	Bind(h Hooks)

	// Init configures the context-switch and tick interrupt priorities and
	// zeroes critical-nesting state.
	Init() error

	// StartTick programs the periodic tick timer for hz ticks per second.
	StartTick(hz uint32)

	// StartFirstTask installs the first task's saved frame as the thread
	// context and transfers control to it. It does not return while the
	// system runs.
	StartFirstTask()

	// BuildInitialFrame lays out an initial saved context on the task's
	// stack such that the first restore enters fn(param) in thread mode.
	// It returns the frame handle and the initial saved stack pointer.
	BuildInitialFrame(stack []byte, fn TaskFunc, param any) (Frame, uintptr)

	EnterCritical()
	ExitCritical()

	// EnterCriticalISR and ExitCriticalISR are the interrupt-safe variants.
	EnterCriticalISR() uintptr
	ExitCriticalISR(mask uintptr)

	// Yield pends the context-switch exception. Task context only; the
	// switch is taken before the next line of task code runs.
	Yield()

	// Idle waits for the next interrupt. Used by the kernel idle task.
	Idle()
}
