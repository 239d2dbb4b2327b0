// Package protocol implements the framing used by generated harnesses to hand
// their result back to the engine.
//
// A harness writes its JSON result to stdout enclosed by a per-invocation
// sentinel: "\n" + sentinel + json + sentinel + "\n". Everything outside a
// frame is diagnostic noise produced by user code.
package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	sentinelPrefix = "@@FNEXEC-"
	sentinelSuffix = "@@"

	// EnvSentinel names the environment variable carrying the sentinel to the harness.
	EnvSentinel = "FNEXEC_SENTINEL"
	// EnvArguments names the environment variable carrying the JSON encoded arguments.
	EnvArguments = "FNEXEC_ARGS"
)

var (
	ErrNoFrame         = errors.New("no result frame in output")
	ErrIncompleteFrame = errors.New("result frame is not terminated")
	ErrFrameTooLarge   = errors.New("result frame exceeds the size limit")
	ErrEmptyFrame      = errors.New("result frame is empty")
)

// Sentinel delimits a result frame. A new random sentinel is used for every invocation.
type Sentinel string

// NewSentinel returns a random sentinel.
func NewSentinel() Sentinel {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Sentinel(sentinelPrefix + id + sentinelSuffix)
}

// Frame encloses a payload the way harnesses do.
func (s Sentinel) Frame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2*len(s)+2)
	out = append(out, '\n')
	out = append(out, s...)
	out = append(out, payload...)
	out = append(out, s...)
	out = append(out, '\n')
	return out
}

// Decoder is an io.Writer that separates result frames from noise while the
// output is still being produced. Chunk boundaries may fall anywhere, including
// inside a sentinel. Noise is forwarded to the configured writer.
type Decoder struct {
	mu       sync.Mutex
	sentinel []byte
	noise    io.Writer
	maxFrame int

	pending  []byte
	inFrame  bool
	frame    []byte
	overflow bool

	last        []byte
	frames      int
	oversized   bool
	closed      bool
	unterminate bool
}

// NewDecoder creates a Decoder. Noise is discarded when noise is nil. A maxFrame
// of zero disables the frame size limit.
func NewDecoder(sentinel Sentinel, noise io.Writer, maxFrame int) *Decoder {
	if noise == nil {
		noise = io.Discard
	}
	return &Decoder{
		sentinel: []byte(sentinel),
		noise:    noise,
		maxFrame: maxFrame,
	}
}

// Write implements io.Writer. It never fails so a process is never blocked on
// its stdout by the decoder.
func (d *Decoder) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.emit(p)
		return len(p), nil
	}
	d.pending = append(d.pending, p...)
	d.drain()
	return len(p), nil
}

func (d *Decoder) drain() {
	for {
		idx := bytes.Index(d.pending, d.sentinel)
		if idx < 0 {
			keep := partialSuffix(d.pending, d.sentinel)
			d.emit(d.pending[:len(d.pending)-keep])
			d.pending = append(d.pending[:0], d.pending[len(d.pending)-keep:]...)
			return
		}
		d.emit(d.pending[:idx])
		d.pending = append(d.pending[:0], d.pending[idx+len(d.sentinel):]...)
		if d.inFrame {
			d.closeFrame()
		} else {
			d.inFrame = true
			d.frame = d.frame[:0]
			d.overflow = false
		}
	}
}

func (d *Decoder) emit(b []byte) {
	if len(b) == 0 {
		return
	}
	if !d.inFrame {
		_, _ = d.noise.Write(b)
		return
	}
	if d.maxFrame > 0 && len(d.frame)+len(b) > d.maxFrame {
		d.overflow = true
		return
	}
	d.frame = append(d.frame, b...)
}

func (d *Decoder) closeFrame() {
	d.inFrame = false
	d.frames++
	if d.overflow {
		d.oversized = true
		d.last = nil
		return
	}
	d.oversized = false
	d.last = append([]byte(nil), d.frame...)
}

// Close flushes buffered bytes. Bytes arriving after Close are treated as noise.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.emit(d.pending)
	d.pending = nil
	if d.inFrame {
		d.unterminate = true
		d.inFrame = false
	}
	return nil
}

// Result returns the payload of the last complete frame. It must be called after Close.
func (d *Decoder) Result() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.unterminate && d.last == nil:
		return nil, ErrIncompleteFrame
	case d.oversized:
		return nil, ErrFrameTooLarge
	case d.frames == 0:
		return nil, ErrNoFrame
	}
	payload := bytes.TrimSpace(d.last)
	if len(payload) == 0 {
		return nil, ErrEmptyFrame
	}
	return payload, nil
}

// Extract parses a complete output buffer and returns the framed payload.
func Extract(output []byte, sentinel Sentinel) ([]byte, error) {
	d := NewDecoder(sentinel, nil, 0)
	_, _ = d.Write(output)
	_ = d.Close()
	return d.Result()
}

// partialSuffix returns the length of the longest suffix of b that is a proper prefix of marker.
func partialSuffix(b []byte, marker []byte) int {
	max := len(marker) - 1
	if max > len(b) {
		max = len(b)
	}
	for n := max; n > 0; n-- {
		if bytes.HasSuffix(b, marker[:n]) {
			return n
		}
	}
	return 0
}
