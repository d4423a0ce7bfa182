package kern

import "testing"

func TestSemaphoreInitValidation(t *testing.T) {
	newTestKernel(t, nil)

	if _, st := NewSemaphore(5, 3); st != StatusInvalidParam {
		t.Fatalf("initial > max accepted: %v", st)
	}
	if _, st := NewSemaphore(5, 0); !st.OK() { // 0 = unbounded
		t.Fatalf("unbounded rejected: %v", st)
	}
}

func TestSemaphoreCountsNonBlocking(t *testing.T) {
	newTestKernel(t, nil)

	s, st := NewSemaphore(1, 2)
	if !st.OK() {
		t.Fatalf("create: %v", st)
	}

	if st := s.TryWait(); !st.OK() {
		t.Fatalf("try-wait on count 1: %v", st)
	}
	if st := s.TryWait(); st != StatusTimeout {
		t.Fatalf("try-wait on count 0 = %v, want timeout", st)
	}

	if st := s.Signal(); !st.OK() {
		t.Fatalf("signal: %v", st)
	}
	if st := s.Signal(); !st.OK() {
		t.Fatalf("signal: %v", st)
	}
	if got := s.Count(); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	if st := s.Signal(); st != StatusOverflow {
		t.Fatalf("signal past max = %v, want overflow", st)
	}
}

// TestSemaphorePriorityWakeup: three waiters of rising priority; each
// signal must wake the highest-priority one still waiting.
func TestSemaphorePriorityWakeup(t *testing.T) {
	sim := newTestKernel(t, &Config{Scheduler: PolicyFixedPriority})
	s, _ := NewSemaphore(0, 1)
	log := &eventLog{}

	waiter := func(name string, prio uint8) {
		CreateTask(func(any) {
			if st := s.Wait(MaxWait); !st.OK() {
				t.Errorf("%s wait: %v", name, st)
			}
			log.add(name)
			blockForever()
		}, name, 0, nil, prio)
	}
	waiter("w1", 1)
	waiter("w2", 2)
	waiter("w3", 3)

	CreateTask(func(any) {
		for i := 0; i < 3; i++ {
			DelayTicks(2)
			s.Signal()
		}
		blockForever()
	}, "driver", 0, nil, 4)

	startTestKernel(t, sim)
	runTicks(t, sim, 10)

	want := []string{"w3", "w2", "w1"}
	if got := log.snapshot(); !equalStrings(got, want) {
		t.Fatalf("wake order = %v, want %v", got, want)
	}
	// Each wake consumed the give directly; the count never rose.
	if got := s.Count(); got != 0 {
		t.Fatalf("count = %d, want 0", got)
	}
}

// TestSemaphoreWaitTimeout: a timed wait returns Timeout after the exact
// number of ticks and leaves the wait list clean.
func TestSemaphoreWaitTimeout(t *testing.T) {
	sim := newTestKernel(t, &Config{Scheduler: PolicyFixedPriority})
	s, _ := NewSemaphore(0, 1)
	log := &eventLog{}

	var started, ended uint32
	CreateTask(func(any) {
		started = TickCount()
		st := s.Wait(50)
		ended = TickCount()
		if st != StatusTimeout {
			t.Errorf("wait = %v, want timeout", st)
		}
		log.add("timed-out")
		blockForever()
	}, "waiter", 0, nil, 2)

	startTestKernel(t, sim)
	runTicks(t, sim, 60)

	if got := log.snapshot(); !equalStrings(got, []string{"timed-out"}) {
		t.Fatalf("events = %v", got)
	}
	elapsed := ended - started
	if elapsed < 50 || elapsed > 51 {
		t.Fatalf("timeout after %d ticks, want 50±1", elapsed)
	}
	if !s.waiters.empty() {
		t.Fatal("waiter left on the wait list after timeout")
	}
	// A later signal must not find a ghost waiter.
	if st := s.Signal(); !st.OK() {
		t.Fatalf("signal: %v", st)
	}
	if got := s.Count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}
