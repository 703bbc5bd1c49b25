// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: launcher.go — One-shot two-core bootstrap
//
// Purpose:
//   - Initializes the arena, carves the second core's stack, starts core 1
//     with executor B and then turns the calling goroutine into core 0
//     running executor A.
//
// Notes:
//   - Every step runs exactly once; a second Launch on the same heap fails
//     with arena.ErrDoubleInit.
//   - There is no single-core fallback: a core that cannot start is fatal
//     under Boot.
//
// ⚠️ Boot is the process entry point and does not return while cores run.
// ─────────────────────────────────────────────────────────────────────────────

package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"twincore/arena"
	"twincore/control"
	"twincore/debug"
	"twincore/executor"
	"twincore/fault"
)

// Program is what one core runs: its CPU and the tasks it spawns.
type Program struct {
	CPU   int
	Setup func(*executor.Executor) error
}

// Plan describes a launch.
type Plan struct {
	Heap      *arena.Arena
	Memory    []byte
	StackSize int

	CoreA Program
	CoreB Program

	Control    *control.Control
	Logger     *debug.Logger
	Clock      executor.Clock
	SpinBudget int

	// OnHeapReady runs right after the arena is initialized, before any core
	// starts.
	OnHeapReady func(*arena.Arena) error
}

// Launch performs the bootstrap and runs core 0 on the calling goroutine.
// It returns once ctx is done or the control stop flag is raised, after
// core 1 has stopped too; or earlier with the first launch failure.
func Launch(ctx context.Context, plan Plan) error {
	log := plan.Logger
	if log == nil {
		log = debug.Default()
	}
	log = log.With("boot", uuid.NewString())

	// ───── Step 1: arena ─────
	if err := plan.Heap.Init(plan.Memory); err != nil {
		return fmt.Errorf("launcher: heap: %w", err)
	}
	log.Logf("heap ready, %d bytes free", plan.Heap.Free())
	if plan.OnHeapReady != nil {
		if err := plan.OnHeapReady(plan.Heap); err != nil {
			return fmt.Errorf("launcher: heap hook: %w", err)
		}
	}

	// ───── Step 2: stack for core 1 ─────
	stack, err := NewStack(plan.StackSize)
	if err != nil {
		return err
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// either core ending cancels the other
	g, gctx := errgroup.WithContext(ctx)

	// ───── Step 3: core 1 / executor B ─────
	execB := newExecutor("core1", plan, log, executor.WithStackGuard(stack.Check))
	if err := setup(plan.CoreB, execB); err != nil {
		return err
	}
	coreB := &Core{ID: 1, CPU: plan.CoreB.CPU, Log: log}
	doneB, err := coreB.Start(stack, func() error { return execB.Run(gctx) })
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCoreStart, err)
	}
	g.Go(func() error { return <-doneB })

	// ───── Step 4: core 0 / executor A ─────
	execA := newExecutor("core0", plan, log)
	errA := setup(plan.CoreA, execA)
	if errA == nil {
		coreA := &Core{ID: 0, CPU: plan.CoreA.CPU, Log: log}
		if errA = coreA.Enter(func() error { return execA.Run(gctx) }); errors.Is(errA, ErrCoreAbsent) {
			errA = fmt.Errorf("%w: %w", ErrCoreStart, errA)
		}
	}
	cancel()

	errB := g.Wait()
	if errB != nil && !isStop(errB) {
		return fmt.Errorf("launcher: core1: %w", errB)
	}
	if errors.Is(errA, context.Canceled) {
		// core 0 was stopped from outside: report why
		if err := parent.Err(); err != nil {
			return err
		}
		if errB != nil {
			return errB
		}
	}
	return errA
}

// Boot is the diverging entry point: it launches with a context that is
// never cancelled and halts on any failure. It returns only after an
// orderly stop through the plan's Control.
func Boot(plan Plan) {
	err := Launch(context.Background(), plan)
	if errors.Is(err, executor.ErrStopped) {
		return
	}
	if err == nil {
		err = errors.New("launcher: cores returned without a stop request")
	}
	fault.Halt(err)
}

func newExecutor(name string, plan Plan, log *debug.Logger, extra ...executor.Option) *executor.Executor {
	opts := []executor.Option{
		executor.WithLogger(log),
		executor.WithControl(plan.Control),
	}
	if plan.Clock != nil {
		opts = append(opts, executor.WithClock(plan.Clock))
	}
	if plan.SpinBudget > 0 {
		opts = append(opts, executor.WithSpinBudget(plan.SpinBudget))
	}
	return executor.New(name, append(opts, extra...)...)
}

func setup(p Program, e *executor.Executor) error {
	if p.Setup == nil {
		return nil
	}
	if err := p.Setup(e); err != nil {
		return fmt.Errorf("launcher: %s setup: %w", e.Name(), err)
	}
	return nil
}

func isStop(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, executor.ErrStopped)
}
