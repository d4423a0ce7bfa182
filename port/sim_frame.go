//go:build !tinygo

package port

import "runtime"

// simFrame is the simulated machine context of one task: a goroutine plus
// a CPU gate. A frame's goroutine runs only while it holds the CPU token;
// handing the token over is the simulated context switch.
type simFrame struct {
	fn      TaskFunc
	param   any
	gate    chan struct{}
	started bool
}

func newSimFrame(fn TaskFunc, param any) *simFrame {
	return &simFrame{fn: fn, param: param, gate: make(chan struct{}, 1)}
}

// resume hands the CPU token to the frame, starting its goroutine on first
// use.
func (f *simFrame) resume(s *Sim) {
	if !f.started {
		f.started = true
		go f.run(s)
		return
	}
	f.gate <- struct{}{}
}

// park blocks until the frame is handed the CPU token again. If the
// simulation is stopped while parked, the goroutine exits.
func (f *simFrame) park(s *Sim) {
	select {
	case <-f.gate:
	case <-s.kill:
		runtime.Goexit()
	}
}

func (f *simFrame) run(s *Sim) {
	f.fn(f.param)
	if s.hooks.TaskExit != nil {
		s.hooks.TaskExit()
	}
	// No exit hook: hold the CPU until the simulation stops.
	<-s.kill
}
