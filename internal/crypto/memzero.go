package crypto

import "runtime"

// Wipe zeroes the provided buffer. Best-effort to prevent compiler elision.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// Keep b alive until after the loop.
	runtime.KeepAlive(&b)
}

// WipeAll zeroes every buffer in bufs, in order. The X3DH sender and
// receiver halves each finish a run holding half a dozen intermediate DH
// outputs and ephemeral secrets; this lets a cleanup site wipe all of them
// in one call instead of one Wipe per variable.
func WipeAll(bufs ...[]byte) {
	for _, b := range bufs {
		Wipe(b)
	}
}
