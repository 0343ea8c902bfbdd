// Package api implements the plaintext native API framing used between the
// satellite and the hub.
//
// A frame on the wire is:
//
//	[0x00][varint payload length][varint message type][payload]
//
// Varints use 7 bits per byte, least significant group first, with the high
// bit set on every byte except the last. Payloads are protobuf-encoded
// messages.
package api

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

const preamble = 0x00

// DefaultMaxFrameSize is used when a Decoder is created with a size <= 0
const DefaultMaxFrameSize = 1 << 20

var (
	// ErrNeedMoreData means the buffer holds no complete frame yet. Nothing was consumed.
	ErrNeedMoreData = errors.New("api: need more data")
	// ErrInvalidPreamble means the first byte of a frame was not 0x00
	ErrInvalidPreamble = errors.New("api: invalid preamble")
	// ErrVarintOverflow means a header varint does not fit in 64 bits
	ErrVarintOverflow = errors.New("api: varint overflow")
	// ErrFrameTooLarge means the header declares a payload larger than the limit
	ErrFrameTooLarge = errors.New("api: frame too large")
	// ErrTruncated means a payload field runs past the end of its frame
	ErrTruncated = errors.New("api: truncated payload")
)

// IsFramingError reports whether err means the byte stream can no longer be trusted
func IsFramingError(err error) bool {
	return errors.Is(err, ErrInvalidPreamble) ||
		errors.Is(err, ErrVarintOverflow) ||
		errors.Is(err, ErrFrameTooLarge) ||
		errors.Is(err, ErrTruncated)
}

// consumeVarint reads one header varint, mapping protowire failures onto the
// framing errors above.
func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) {
			return 0, 0, ErrNeedMoreData
		}
		return 0, 0, ErrVarintOverflow
	}
	return v, n, nil
}

// DecodeFrame decodes the first frame in buf
// Params:
//   - buf: buffered bytes, starting at a frame boundary
//   - maxFrameSize: largest accepted payload length
//
// Returns:
//   - Message: the decoded message, *Unknown for unregistered types
//   - int: number of bytes consumed, 0 unless err is nil
//   - error: ErrNeedMoreData when buf holds only part of a frame, a framing error otherwise
func DecodeFrame(buf []byte, maxFrameSize int) (Message, int, error) {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	if len(buf) == 0 {
		return nil, 0, ErrNeedMoreData
	}
	if buf[0] != preamble {
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidPreamble, buf[0])
	}
	pos := 1

	length, n, err := consumeVarint(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	if length > uint64(maxFrameSize) {
		return nil, 0, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxFrameSize)
	}
	pos += n

	msgType, n, err := consumeVarint(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	if msgType > 0xFFFFFFFF {
		return nil, 0, fmt.Errorf("%w: message type %d", ErrVarintOverflow, msgType)
	}
	pos += n

	if uint64(len(buf)-pos) < length {
		return nil, 0, ErrNeedMoreData
	}
	payload := buf[pos : pos+int(length)]
	pos += int(length)

	msg := newMessage(MessageType(msgType))
	if msg == nil {
		return &Unknown{Type: MessageType(msgType), Payload: append([]byte(nil), payload...)}, pos, nil
	}
	if err := msg.unmarshalPayload(payload); err != nil {
		return nil, 0, fmt.Errorf("%w: type %d: %v", ErrTruncated, msgType, err)
	}
	return msg, pos, nil
}

// AppendFrame appends the framed encoding of msg to b
func AppendFrame(b []byte, msg Message) []byte {
	payload := msg.appendPayload(nil)
	b = append(b, preamble)
	b = protowire.AppendVarint(b, uint64(len(payload)))
	b = protowire.AppendVarint(b, uint64(msg.MessageType()))
	return append(b, payload...)
}

// Encode frames each message in order into a single buffer
func Encode(msgs ...Message) []byte {
	var b []byte
	for _, msg := range msgs {
		b = AppendFrame(b, msg)
	}
	return b
}

// Decoder accumulates stream bytes and yields complete messages
type Decoder struct {
	buf          []byte
	maxFrameSize int
}

// NewDecoder creates a Decoder that rejects payloads larger than maxFrameSize
func NewDecoder(maxFrameSize int) *Decoder {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Decoder{maxFrameSize: maxFrameSize}
}

// Write appends received bytes
func (d *Decoder) Write(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete message, or ErrNeedMoreData
func (d *Decoder) Next() (Message, error) {
	msg, n, err := DecodeFrame(d.buf, d.maxFrameSize)
	if err != nil {
		return nil, err
	}
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
	return msg, nil
}

// Buffered returns the number of bytes waiting for a complete frame
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset drops all buffered bytes
func (d *Decoder) Reset() {
	d.buf = nil
}
