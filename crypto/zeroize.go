package crypto

import "runtime"

// Zeroize overwrites b with zeros in place. runtime.KeepAlive defeats
// the dead-store elimination the compiler would otherwise be free to
// apply to a buffer that is about to go out of scope, so every
// key-bearing buffer in this module actually gets wiped rather than
// optimized away.
func Zeroize(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
