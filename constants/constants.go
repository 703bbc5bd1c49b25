// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Board-wide tunables for the two-core runtime
//
// Purpose:
//   - Compile-time defaults for the arena, the cross-core channel, the second
//     core's stack and the demo tasks.
//   - config.Default() starts from these values.
//
// ⚠️ No runtime logic here: all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

import "time"

// ───────────────────────────── Dynamic Memory ──────────────────────────────

const (
	// ArenaSize is the byte size of the static region backing every dynamic
	// allocation on both cores.
	ArenaSize = 1280

	// ArenaAlign is the minimum alignment and size granularity of a block.
	ArenaAlign = 8
)

// ─────────────────────────── Cross-Core Channel ────────────────────────────

const (
	// ChannelCapacity of 1 gives strict producer/consumer alternation.
	ChannelCapacity = 1
)

// ──────────────────────────────── Cores ────────────────────────────────────

const (
	// CoreStackSize is the size of the region carved out for the second core.
	CoreStackSize = 4096

	// CoreACPU and CoreBCPU are the logical CPUs the two cores are pinned to.
	// -1 leaves a core unpinned.
	CoreACPU = 0
	CoreBCPU = 1

	// SpinBudget is how many empty idle polls an executor spins (with
	// cpuRelax) before parking on its wake primitive.
	SpinBudget = 256

	// HotWindow keeps an executor spinning after its last productive pass.
	HotWindow = 2 * time.Millisecond
)

// ─────────────────────────────── Tasks ─────────────────────────────────────

const (
	// ProducerInterval is the pause between SinkOn/SinkOff pairs.
	ProducerInterval = 100 * time.Millisecond

	// OutputPin identifies the digital output driven by the consumer.
	OutputPin = 26

	// WarmupLen is the number of values pushed by every start-up churn.
	WarmupLen = 10
)

// ───────────────────────────── Telemetry ───────────────────────────────────

const (
	// TelemetryPerSecond caps heap telemetry records per category. The default
	// producer emits 20/s, the consumer 10/s.
	TelemetryPerSecond = 50

	// LogLevel is the default zerolog level name.
	LogLevel = "info"

	// DiodeSize is the number of buffered records in the non-blocking writer.
	DiodeSize = 1024
)
