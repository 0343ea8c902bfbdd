// Package audio provides microphone sources delivering fixed-size chunks of
// 16 kHz mono little-endian 16-bit PCM.
package audio

import "context"

const (
	SampleRate  = 16000
	SampleWidth = 2
	Channels    = 1
)

// Source captures audio and hands every chunk to push. push must not block.
type Source interface {
	Name() string
	Start(ctx context.Context, push func(chunk []byte)) error
	Close() error
}

// Chunker cuts an arbitrary byte stream into fixed-size chunks
type Chunker struct {
	size int
	buf  []byte
}

// NewChunker creates a Chunker emitting size-byte chunks
func NewChunker(size int) *Chunker {
	if size <= 0 {
		size = 1024 * SampleWidth
	}
	return &Chunker{size: size}
}

// Write buffers p and calls emit for every completed chunk. Emitted chunks
// are fresh slices the receiver may keep.
func (c *Chunker) Write(p []byte, emit func(chunk []byte)) {
	c.buf = append(c.buf, p...)
	for len(c.buf) >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, c.buf[:c.size])
		n := copy(c.buf, c.buf[c.size:])
		c.buf = c.buf[:n]
		emit(chunk)
	}
}

// Reset drops a partial chunk
func (c *Chunker) Reset() {
	c.buf = c.buf[:0]
}
