package kern

import (
	"sync"
	"testing"
	"time"

	"ember/internal/rlog"
	"ember/port"
)

func TestMain(m *testing.M) {
	rlog.SetOutput(nil)
	m.Run()
}

// resetKernel clears the singleton between tests.
func resetKernel() {
	k = kernelState{}
	faultOnce = sync.Once{}
	faultActive.Store(false)
	faultHandler.Store(func(FaultInfo) {})
	cycleSource = nil
}

// newTestKernel initializes the kernel on a fresh manually ticked sim.
func newTestKernel(t *testing.T, cfg *Config) *port.Sim {
	t.Helper()
	resetKernel()
	sim := port.NewSim(port.SimConfig{})
	if st := Init(sim, cfg); !st.OK() {
		t.Fatalf("kernel init: %s", st)
	}
	t.Cleanup(func() {
		sim.Stop()
		resetKernel()
	})
	return sim
}

// startTestKernel launches the scheduler and waits for the first settle:
// every task has run to its first blocking point and the idle task holds
// the CPU.
func startTestKernel(t *testing.T, sim *port.Sim) {
	t.Helper()
	go Start()
	if !sim.Quiesce(2 * time.Second) {
		t.Fatal("kernel did not settle after start")
	}
}

// runTicks injects n ticks, letting the system settle after each one so
// tick-driven activity is deterministic.
func runTicks(t *testing.T, sim *port.Sim, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		sim.Tick()
		if !sim.Quiesce(2 * time.Second) {
			t.Fatalf("system did not settle after tick %d", i+1)
		}
	}
}

// blockForever parks the calling task for good.
func blockForever() {
	s, _ := NewSemaphore(0, 1)
	s.Wait(MaxWait)
}
