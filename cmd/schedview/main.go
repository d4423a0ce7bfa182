//go:build !tinygo

// Schedview opens a window showing the live kernel: every task with its
// state, priorities and CPU share, plus the scheduler's list counters.
// The kernel runs on the simulated port with a real-time tick.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"ember/internal/buildinfo"
	"ember/kern"
	"ember/port"
)

const (
	screenW = 640
	screenH = 360
	rowH    = 28
)

var stateColors = map[kern.TaskState]color.RGBA{
	kern.StateRunning:   {0x3C, 0xB4, 0x4B, 0xFF},
	kern.StateReady:     {0x4B, 0x7B, 0xE5, 0xFF},
	kern.StateBlocked:   {0xE5, 0xA8, 0x3C, 0xFF},
	kern.StateSuspended: {0x99, 0x99, 0x99, 0xFF},
	kern.StateDeleted:   {0x55, 0x55, 0x55, 0xFF},
}

type taskRow struct {
	name     string
	state    kern.TaskState
	prio     uint8
	base     uint8
	runTicks uint64
}

type game struct {
	rows  []taskRow
	stats kern.SchedStats
	total uint64
}

func (g *game) Update() error {
	n := kern.TaskCount()
	g.rows = g.rows[:0]
	g.total = 0
	for i := 0; i < n; i++ {
		t := kern.TaskByID(uint8(i))
		if t == nil {
			continue
		}
		r := taskRow{
			name:     t.Name(),
			state:    t.State(),
			prio:     t.Priority(),
			base:     t.BasePriority(),
			runTicks: t.RunTicks(),
		}
		g.total += r.runTicks
		g.rows = append(g.rows, r)
	}
	g.stats = kern.SchedulerStats()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	header := fmt.Sprintf("ember %s  policy=%s  tick=%d  ready=%d delayed=%d",
		buildinfo.Short(), g.stats.Policy, kern.TickCount(),
		g.stats.ReadyCount, g.stats.DelayedCount)
	ebitenutil.DebugPrintAt(screen, header, 8, 8)

	y := 40
	for _, r := range g.rows {
		c, ok := stateColors[r.state]
		if !ok {
			c = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
		}
		vector.DrawFilledRect(screen, 8, float32(y), 12, 12, c, false)

		share := 0.0
		if g.total > 0 {
			share = float64(r.runTicks) / float64(g.total)
		}
		vector.DrawFilledRect(screen, 260, float32(y), float32(320*share), 12,
			color.RGBA{0x77, 0x77, 0xBB, 0xFF}, false)

		line := fmt.Sprintf("%-12s %-9s prio=%d/%d", r.name, r.state, r.prio, r.base)
		ebitenutil.DebugPrintAt(screen, line, 28, y-2)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%5.1f%%", share*100), 588, y-2)
		y += rowH
	}
}

func (g *game) Layout(int, int) (int, int) { return screenW, screenH }

func policyFromFlag(s string) (kern.Policy, bool) {
	switch s {
	case "fixed":
		return kern.PolicyFixedPriority, true
	case "coop":
		return kern.PolicyCooperative, true
	case "rr":
		return kern.PolicyRoundRobin, true
	}
	return 0, false
}

func main() {
	var policyName string
	flag.StringVar(&policyName, "policy", "fixed", "Scheduler policy: fixed, coop or rr.")
	flag.Parse()

	policy, ok := policyFromFlag(policyName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown policy %q\n", policyName)
		os.Exit(1)
	}

	sim := port.NewSim(port.SimConfig{AutoTick: true})
	if st := kern.Init(sim, &kern.Config{Scheduler: policy}); !st.OK() {
		fmt.Fprintf(os.Stderr, "kernel init: %s\n", st)
		os.Exit(1)
	}

	periodic := func(name string, prio uint8, periodMS uint32) {
		kern.CreateTask(func(any) {
			for {
				kern.DelayMS(periodMS)
			}
		}, name, 0, nil, prio)
	}
	periodic("sensor", 4, 50)
	periodic("control", 3, 100)
	periodic("report", 2, 400)

	// A busy worker that never blocks; it stays preemptible through
	// simulated-port checkpoints.
	kern.CreateTask(func(any) {
		for {
			sim.Checkpoint()
		}
	}, "crunch", 0, nil, 1)

	go kern.Start()

	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("ember schedview")
	if err := ebiten.RunGame(&game{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sim.Stop()
}
