//go:build !tinygo

// Monitor runs the kernel with a handful of demo tasks and drives it from
// the terminal: number keys suspend and resume tasks, 'd' dumps the task
// table, 's' shows scheduler counters, 'q' quits.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-tty"

	"ember/internal/buildinfo"
	"ember/kern"
	"ember/port"
)

func main() {
	var tickHz uint
	flag.UintVar(&tickHz, "hz", 1000, "Kernel tick rate.")
	flag.Parse()

	sim := port.NewSim(port.SimConfig{AutoTick: true})
	if st := kern.Init(sim, &kern.Config{TickHz: uint32(tickHz)}); !st.OK() {
		fmt.Fprintf(os.Stderr, "kernel init: %s\n", st)
		os.Exit(1)
	}

	var workers []*kern.Task
	for i, cfg := range []struct {
		name     string
		prio     uint8
		periodMS uint32
	}{
		{"fast", 4, 50},
		{"medium", 3, 200},
		{"slow", 2, 800},
	} {
		t, st := kern.CreateTask(func(any) {
			for {
				kern.DelayMS(cfg.periodMS)
			}
		}, cfg.name, 0, nil, cfg.prio)
		if !st.OK() {
			fmt.Fprintf(os.Stderr, "create %s: %s\n", cfg.name, st)
			os.Exit(1)
		}
		workers = append(workers, t)
		fmt.Printf("  [%d] %s (prio %d, %dms)\n", i+1, cfg.name, cfg.prio, cfg.periodMS)
	}

	go kern.Start()

	t, err := tty.Open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer t.Close()

	fmt.Printf("ember monitor (%s) — 1-%d toggle, d dump, s stats, q quit\n",
		buildinfo.Short(), len(workers))

	for {
		r, err := t.ReadRune()
		if err != nil {
			break
		}
		switch {
		case r == 'q':
			sim.Stop()
			return
		case r == 'd':
			kern.DumpTasks(os.Stdout)
		case r == 's':
			st := kern.SchedulerStats()
			fmt.Printf("policy=%s ready=%d delayed=%d mask=%08b\n",
				st.Policy, st.ReadyCount, st.DelayedCount, st.ReadyMask)
		case r >= '1' && int(r-'1') < len(workers):
			w := workers[r-'1']
			switch w.State() {
			case kern.StateSuspended:
				kern.Resume(w)
				fmt.Printf("resumed %s\n", w.Name())
			case kern.StateRunning:
				// Suspending the running task belongs to task context.
				fmt.Printf("%s is on the CPU, try again\n", w.Name())
			default:
				kern.Suspend(w)
				fmt.Printf("suspended %s\n", w.Name())
			}
		}
	}
}
