// fault.go
//
// Fatal-condition sink.  There is no supervisor above the two cores, so a
// fatal condition (double arena init, allocation before init, a core that
// cannot start, a clobbered stack canary) is recorded and the calling core
// stops by panicking with a *Fault.  Left unrecovered, that aborts the
// process with the diagnostic attached.

package fault

import (
	"errors"

	"twincore/debug"
)

// Fault is the panic value raised by Halt.
type Fault struct {
	Err error
}

func (f *Fault) Error() string {
	return "fault: " + f.Err.Error()
}

func (f *Fault) Unwrap() error { return f.Err }

// Halt records err through the default logger and stops the calling core.
// It never returns.
func Halt(err error) {
	if err == nil {
		err = errors.New("halt without cause")
	}
	debug.Default().Fatal(err, "halt")
	panic(&Fault{Err: err})
}

// Recover converts a Fault panic back into an error; other panics are
// re-raised. Use as `defer fault.Recover(&err)`.
func Recover(dst *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(*Fault); ok {
		*dst = f
		return
	}
	panic(r)
}
