package kern

import (
	"fmt"
	"io"
)

// Cycle-level profiling. The cycle source is a port-supplied free-running
// counter (DWT cycle counter on hardware, any monotonic source on host);
// without one, Cycles returns the tick count.

var cycleSource func() uint32

// SetCycleSource installs the free-running cycle counter used by
// ProfileStat measurements.
func SetCycleSource(fn func() uint32) {
	cycleSource = fn
}

// Cycles samples the cycle source.
func Cycles() uint32 {
	if cycleSource != nil {
		return cycleSource()
	}
	return TickCount()
}

// ProfileStat accumulates min/max/total over repeated measurements.
// Record takes a span the caller has already measured; the stat does no
// timing of its own.
type ProfileStat struct {
	name  string
	min   uint32
	max   uint32
	total uint64
	count uint32
}

// NewProfileStat returns a reset stat.
func NewProfileStat(name string) *ProfileStat {
	s := &ProfileStat{}
	s.Reset(name)
	return s
}

// Reset clears the stat.
func (s *ProfileStat) Reset(name string) {
	k.p.EnterCritical()
	s.name = name
	s.min = ^uint32(0)
	s.max = 0
	s.total = 0
	s.count = 0
	k.p.ExitCritical()
}

// Record adds one measurement.
func (s *ProfileStat) Record(cycles uint32) {
	k.p.EnterCritical()
	if cycles < s.min {
		s.min = cycles
	}
	if cycles > s.max {
		s.max = cycles
	}
	s.total += uint64(cycles)
	s.count++
	k.p.ExitCritical()
}

// Snapshot returns name, min, max, average and sample count.
func (s *ProfileStat) Snapshot() (name string, min, max, avg uint32, count uint32) {
	k.p.EnterCritical()
	defer k.p.ExitCritical()
	name = s.name
	count = s.count
	if count == 0 {
		return name, 0, 0, 0, 0
	}
	return name, s.min, s.max, uint32(s.total / uint64(count)), count
}

// DumpTasks writes the task table: id, name, state, priorities, stack
// size and accumulated run ticks.
func DumpTasks(w io.Writer) {
	type row struct {
		id       uint8
		name     string
		state    TaskState
		prio     uint8
		base     uint8
		stack    int
		runTicks uint64
	}

	k.p.EnterCritical()
	rows := make([]row, 0, k.taskCount)
	for i := 0; i < k.taskCount; i++ {
		t := k.tasks[i]
		rows = append(rows, row{t.id, t.name, t.state, t.prio, t.basePrio, len(t.stack), t.runTicks})
	}
	tick := k.tick
	k.p.ExitCritical()

	fmt.Fprintf(w, "tick=%d tasks=%d\n", tick, len(rows))
	for _, r := range rows {
		fmt.Fprintf(w, "  [%d] %-12s %-9s prio=%d base=%d stack=%dB run=%d\n",
			r.id, r.name, r.state, r.prio, r.base, r.stack, r.runTicks)
	}
}
