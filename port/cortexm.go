//go:build tinygo && cortexm

package port

import (
	"device/arm"
	"machine"
	"runtime/volatile"
	"unsafe"
)

// CortexM is the port for ARMv7-M class cores. The tick runs on SysTick,
// context switches on PendSV (lowest exception priority, so it runs when
// the kernel returns), and critical sections mask via PRIMASK.
//
// The PendSV trampoline itself is board-support assembly: it saves R4-R11
// onto the process stack, stores PSP into the first word of the current
// task record, calls the SwitchContext hook, and restores from the new
// record. This file owns everything on the Go side of that contract.
type CortexM struct {
	hooks   Hooks
	nesting volatile.Register32
	primask uintptr
}

const (
	icsrAddr       = 0xE000ED04
	icsrPendSVSet  = 1 << 28
	shprPendSVAddr = 0xE000ED22 // SHPR3 byte for PendSV
	shprSysTick    = 0xE000ED23 // SHPR3 byte for SysTick
)

var icsr = (*volatile.Register32)(unsafe.Pointer(uintptr(icsrAddr)))

// NewCortexM returns the hardware port.
func NewCortexM() *CortexM {
	return &CortexM{}
}

func (p *CortexM) Bind(h Hooks) { p.hooks = h }

func (p *CortexM) Init() error {
	// PendSV at the lowest priority, SysTick at the kernel priority.
	(*volatile.Register8)(unsafe.Pointer(uintptr(shprPendSVAddr))).Set(0xFF)
	(*volatile.Register8)(unsafe.Pointer(uintptr(shprSysTick))).Set(0x00)
	p.nesting.Set(0)
	return nil
}

func (p *CortexM) StartTick(hz uint32) {
	if hz == 0 {
		return
	}
	arm.SetupSystemTimer(machine.CPUFrequency() / hz)
}

// SysTickHandler must be wired to the SysTick vector by board support.
func (p *CortexM) SysTickHandler() {
	if p.hooks.Tick != nil && p.hooks.Tick() {
		p.Yield()
	}
}

// PendSVSwitch is the Go half of the PendSV handler. Board support saves
// R4-R11 onto the process stack, stores PSP into the first word of the
// current task record, calls this, then restores from the record selected
// here.
func (p *CortexM) PendSVSwitch() {
	if p.hooks.SwitchContext != nil {
		p.hooks.SwitchContext()
	}
}

// BuildInitialFrame lays out the initial exception frame and callee-saved
// registers so that the first restore enters the task trampoline in thread
// mode with the Thumb bit set.
func (p *CortexM) BuildInitialFrame(stack []byte, fn TaskFunc, param any) (Frame, uintptr) {
	f := &cortexFrame{fn: fn, param: param}
	top := uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))
	top &^= 7

	sp := top
	push := func(v uintptr) {
		sp -= 4
		*(*uintptr)(unsafe.Pointer(sp)) = v
	}

	push(0x01000000)                   // xPSR, Thumb bit
	push(taskTrampolineAddr())         // PC
	push(0xFFFFFFFD)                   // LR: EXC_RETURN thread mode, PSP
	push(0)                            // R12
	push(0)                            // R3
	push(0)                            // R2
	push(0)                            // R1
	push(uintptr(unsafe.Pointer(f)))   // R0: frame, unpacked by the trampoline
	for i := 0; i < 8; i++ {           // R11..R4
		push(0)
	}
	f.sp = sp
	return f, sp
}

// StartFirstTask raises SVC with the first frame's stack pointer on PSP;
// the SVC handler (board support) pops the callee-saved registers and
// returns to thread mode.
func (p *CortexM) StartFirstTask() {
	f, _ := p.hooks.CurrentFrame().(*cortexFrame)
	if f == nil {
		return
	}
	arm.AsmFull(`
		msr psp, {sp}
		svc #0
	`, map[string]interface{}{"sp": f.sp})
	for {
		arm.Asm("wfi")
	}
}

func (p *CortexM) EnterCritical() {
	mask := arm.DisableInterrupts()
	if p.nesting.Get() == 0 {
		p.primask = mask
	}
	p.nesting.Set(p.nesting.Get() + 1)
}

func (p *CortexM) ExitCritical() {
	n := p.nesting.Get()
	if n == 0 {
		return
	}
	p.nesting.Set(n - 1)
	if n == 1 {
		arm.EnableInterrupts(p.primask)
	}
}

func (p *CortexM) EnterCriticalISR() uintptr {
	return arm.DisableInterrupts()
}

func (p *CortexM) ExitCriticalISR(mask uintptr) {
	arm.EnableInterrupts(mask)
}

func (p *CortexM) Yield() {
	icsr.SetBits(icsrPendSVSet)
	arm.Asm("dsb")
	arm.Asm("isb")
}

func (p *CortexM) Idle() {
	arm.Asm("wfi")
}
