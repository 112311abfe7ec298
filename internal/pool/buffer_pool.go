// Package pool provides pooled read buffers for the line protocol.
package pool

import "sync"

// DefaultBufferSize matches the default chunk size used by the line protocol.
const DefaultBufferSize = 4096

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultBufferSize)
		return &b
	},
}

// GetBuffer returns a byte slice of length size from the pool.
//
// Return the buffer to the pool with PutBuffer once the caller no longer references it.
func GetBuffer(size int) *[]byte {
	bp, _ := bufferPool.Get().(*[]byte) // only *[]byte is ever put into the pool
	if cap(*bp) < size {
		b := make([]byte, size)
		return &b
	}
	*bp = (*bp)[:size]

	return bp
}

// PutBuffer returns a buffer to the pool.
//
// bp cannot be accessed after returning to the pool.
func PutBuffer(bp *[]byte) {
	if bp == nil || cap(*bp) > 16*DefaultBufferSize {
		// keep oversized chunk buffers out of the pool
		return
	}
	bufferPool.Put(bp)
}
