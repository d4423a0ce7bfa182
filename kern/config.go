package kern

// Compile-time defaults. Each may be overridden per kernel instance via
// Config; a zero Config field means "use the default".
const (
	// DefaultTickHz is the tick rate in ticks per second.
	DefaultTickHz = 1000

	// DefaultMaxTasks is the size of the task record pool.
	DefaultMaxTasks = 8

	// MaxPriorities is the number of priority levels, 0..MaxPriorities-1.
	// Fixed at compile time: the ready-list array and priority bitmap are
	// sized by it.
	MaxPriorities = 8

	// IdlePriority is the priority of the kernel idle task.
	IdlePriority = 0

	// DefaultStackSize is used when a task is created with stack size 0.
	DefaultStackSize = 1024

	// MinStackSize is the hard floor for task stacks.
	MinStackSize = 128

	// DefaultArenaSize is the byte pool backing task stacks and sync
	// object storage.
	DefaultArenaSize = 16384

	// DefaultTimeSliceTicks is the round-robin quantum.
	DefaultTimeSliceTicks = 20

	// StackCanary is the sentinel written at the lowest stack address.
	StackCanary = 0xC0DEC0DE

	// maxInheritDepth bounds the transitive priority-inheritance walk.
	maxInheritDepth = 16

	// maxRecursion caps mutex recursive locking.
	maxRecursion = 255
)

// Timeout values for the blocking operations.
const (
	// NoWait makes a blocking operation try once and return.
	NoWait uint32 = 0

	// MaxWait blocks with no timeout.
	MaxWait uint32 = ^uint32(0)
)

// Policy selects the scheduling policy for the lifetime of the kernel.
type Policy uint8

const (
	// PolicyFixedPriority is preemptive static-priority scheduling, FIFO
	// within a priority level.
	PolicyFixedPriority Policy = iota

	// PolicyCooperative never preempts; tasks run until they yield or
	// block, and yielding rotates the ready list.
	PolicyCooperative

	// PolicyRoundRobin is FIFO scheduling with tick-driven time slices.
	PolicyRoundRobin
)

func (p Policy) String() string {
	switch p {
	case PolicyFixedPriority:
		return "fixed-priority"
	case PolicyCooperative:
		return "cooperative"
	case PolicyRoundRobin:
		return "round-robin"
	default:
		return "unknown"
	}
}

// Config overrides the compile-time defaults at Init. The zero value
// selects every default and the fixed-priority policy.
type Config struct {
	TickHz         uint32
	MaxTasks       int
	ArenaSize      int
	TimeSliceTicks uint32
	Scheduler      Policy
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.TickHz == 0 {
		out.TickHz = DefaultTickHz
	}
	if out.MaxTasks == 0 {
		out.MaxTasks = DefaultMaxTasks
	}
	if out.ArenaSize == 0 {
		out.ArenaSize = DefaultArenaSize
	}
	if out.TimeSliceTicks == 0 {
		out.TimeSliceTicks = DefaultTimeSliceTicks
	}
	return out
}
