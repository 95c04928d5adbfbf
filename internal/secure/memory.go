// Package secure reduces how long decrypted account data lingers in memory.
//
// Go's garbage collector may copy data and strings are immutable, so this is
// best effort: it clears buffers this program owns, nothing more.
package secure

import "runtime"

// ZeroBytes zeros data in a way that won't be optimized away.
func ZeroBytes(data []byte) {
	if len(data) == 0 {
		return
	}

	for i := range data {
		data[i] = 0
	}

	runtime.KeepAlive(data)
}

// CopyBufferSize is the size of buffers handed out by NewBuffer.
const CopyBufferSize = 32 * 1024

// NewBuffer returns a copy buffer and a func that zeros it.
func NewBuffer() ([]byte, func()) {
	buf := make([]byte, CopyBufferSize)
	return buf, func() { ZeroBytes(buf) }
}
