//go:build !linux

package launcher

// No thread affinity API outside Linux; cores run locked to their OS thread
// but unpinned.
const affinitySupported = false

func pin(int) error { return nil }
