package controller

import (
	"bytes"
	"fmt"
	"sync"
)

// boundedBuffer keeps the first limit bytes written to it and counts the rest.
type boundedBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	dropped int64
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

// Write never fails so a chatty process is never blocked on its output.
func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - b.buf.Len()
	if remaining >= len(p) {
		b.buf.Write(p)
		return len(p), nil
	}
	if remaining > 0 {
		b.buf.Write(p[:remaining])
	}
	b.dropped += int64(len(p) - max(remaining, 0))
	return len(p), nil
}

func (b *boundedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped > 0
}

// Bytes returns the captured output with a truncation marker appended when
// output was dropped.
func (b *boundedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := append([]byte(nil), b.buf.Bytes()...)
	if b.dropped > 0 {
		out = append(out, fmt.Sprintf("\n[output truncated: %d bytes dropped]\n", b.dropped)...)
	}
	return out
}
