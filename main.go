// ════════════════════════════════════════════════════════════════════════════
// Two-Core Runtime - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────
// Description:
//   Wires the static arena, the cross-core channel, the output pin and the
//   two demo tasks, then hands control to launcher.Boot, which does not
//   return while the cores run.
//
// Phases:
//   - Phase 0: profile + logger
//   - Phase 1: process tuning (memory locking on Linux)
//   - Phase 2: boot (arena → core 1 → core 0)
//
// ════════════════════════════════════════════════════════════════════════════

package main

import (
	"os"
	"os/signal"
	"syscall"

	"twincore/app"
	"twincore/arena"
	"twincore/channel"
	"twincore/config"
	"twincore/constants"
	"twincore/control"
	"twincore/debug"
	"twincore/launcher"
	"twincore/sink"
)

func main() {
	// PHASE 0: configuration and logging
	profile, err := config.FromEnv()
	if err != nil {
		debug.Default().Fatal(err, "profile")
		os.Exit(2)
	}
	log, closer := debug.NewNonBlocking(os.Stderr, constants.DiodeSize, profile.Level())
	defer func() { _ = closer.Close() }()
	log = log.WithRate(profile.TelemetryPerSecond)
	debug.SetDefault(log)
	log.DropMessage("INIT", "profile loaded")

	// PHASE 1: process tuning
	tuneProcess(log)

	ctl := control.New(profile.HotWindow())
	stopOnSignal(ctl, log)

	// PHASE 2: boot
	ch := channel.New[app.Message](profile.ChannelCapacity)
	pin := sink.NewPin(profile.OutputPin, log.ForCore("core1"))
	producer := &app.Producer{Heap: &arena.Heap, Out: ch, Interval: profile.ProducerInterval()}
	consumer := &app.Consumer{Heap: &arena.Heap, In: ch, Sink: pin}

	launcher.Boot(launcher.Plan{
		Heap:       &arena.Heap,
		Memory:     arena.StaticRegion()[:profile.ArenaSize],
		StackSize:  profile.CoreStackSize,
		CoreA:      launcher.Program{CPU: profile.CPUs[0], Setup: producer.Spawn},
		CoreB:      launcher.Program{CPU: profile.CPUs[1], Setup: consumer.Spawn},
		Control:    ctl,
		Logger:     log,
		SpinBudget: profile.SpinBudget,
		OnHeapReady: func(h *arena.Arena) error {
			return app.Warmup(h, log)
		},
	})
	log.DropMessage("SHUTDOWN", "cores stopped")
}

// stopOnSignal raises the stop flag on SIGINT/SIGTERM; both executors leave
// Run at their next pass boundary.
func stopOnSignal(ctl *control.Control, log *debug.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigs
		log.DropMessage("SIGNAL", s.String())
		ctl.Shutdown()
	}()
}
