package critical

// Relax is the spin-wait hint used by every busy loop in the runtime.
//
//go:nosplit
func Relax() { cpuRelax() }
