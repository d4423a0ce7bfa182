//go:build !tinygo

package port

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeKernel is a minimal two-task dispatcher for exercising the sim in
// isolation: frames rotate on every switch.
type fakeKernel struct {
	mu      sync.Mutex
	frames  []Frame
	current int
	ticks   atomic.Uint32
	resched bool
}

func (f *fakeKernel) hooks() Hooks {
	return Hooks{
		Tick: func() bool {
			f.ticks.Add(1)
			return f.resched
		},
		SwitchContext: func() {
			f.mu.Lock()
			f.current = (f.current + 1) % len(f.frames)
			f.mu.Unlock()
		},
		CurrentFrame: func() Frame {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.frames[f.current]
		},
	}
}

func TestSimInitRequiresHooks(t *testing.T) {
	s := NewSim(SimConfig{})
	if err := s.Init(); err == nil {
		t.Fatal("init without hooks succeeded")
	}
}

func TestSimFrameHandoff(t *testing.T) {
	s := NewSim(SimConfig{})
	defer s.Stop()

	var order []string
	var mu sync.Mutex
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}
	done := make(chan struct{})

	fk := &fakeKernel{}
	fa, _ := s.BuildInitialFrame(make([]byte, 256), func(any) {
		record("a1")
		s.Yield()
		record("a2")
		close(done)
		s.Idle()
		select {}
	}, nil)
	fb, _ := s.BuildInitialFrame(make([]byte, 256), func(any) {
		record("b1")
		s.Yield()
		select {}
	}, nil)
	fk.frames = []Frame{fa, fb}
	fk.current = 0
	s.Bind(fk.hooks())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	go s.StartFirstTask()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handoff did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"a1", "b1", "a2"}
	for i, w := range want {
		if i >= len(order) || order[i] != w {
			t.Fatalf("order = %v, want prefix %v", order, want)
		}
	}
}

func TestSimTickWakesIdle(t *testing.T) {
	s := NewSim(SimConfig{})
	defer s.Stop()

	woke := make(chan struct{}, 8)
	fk := &fakeKernel{}
	fa, _ := s.BuildInitialFrame(make([]byte, 256), func(any) {
		for {
			s.Idle()
			woke <- struct{}{}
		}
	}, nil)
	fk.frames = []Frame{fa}
	s.Bind(fk.hooks())
	s.Init()
	go s.StartFirstTask()

	time.Sleep(time.Millisecond)
	s.Tick()
	select {
	case <-woke:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not wake WFI")
	}
	if fk.ticks.Load() != 1 {
		t.Fatalf("tick handler ran %d times", fk.ticks.Load())
	}
}

func TestSimInitialFrameSP(t *testing.T) {
	s := NewSim(SimConfig{})
	stack := make([]byte, 257) // odd size: top must still align down to 8
	_, sp := s.BuildInitialFrame(stack, func(any) {}, nil)
	if sp%8 != 0 {
		t.Fatalf("initial sp %#x not 8-byte aligned", sp)
	}
}

func TestSimBuildFrameIsInert(t *testing.T) {
	s := NewSim(SimConfig{})
	defer s.Stop()
	ran := atomic.Bool{}
	s.BuildInitialFrame(make([]byte, 128), func(any) { ran.Store(true) }, nil)
	time.Sleep(2 * time.Millisecond)
	if ran.Load() {
		t.Fatal("frame ran before being scheduled")
	}
}
