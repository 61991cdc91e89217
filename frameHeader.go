package h2

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

const (
	// DefaultFrameSize is the fixed size of the frame header envelope.
	// http://httpwg.org/specs/rfc7540.html#FrameHeader
	DefaultFrameSize = 9

	// DefaultMaxFrameLen is the default SETTINGS_MAX_FRAME_SIZE, applied
	// until a peer's SETTINGS raises it.
	DefaultMaxFrameLen = 1 << 14

	// DefaultWindowSize is the default initial flow-control window (§6).
	DefaultWindowSize = 1<<16 - 1

	// DefaultPriority is the default stream priority (§6): unsigned,
	// lower value = higher priority; the default, 2^30, sits midway in the
	// 31-bit range.
	DefaultPriority = 1 << 30
)

// Preface is the 24-byte connection preface a client sends before any
// frames (§6).
var Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// WritePreface writes the connection preface to bw.
func WritePreface(bw *bufio.Writer) error {
	_, err := bw.Write(Preface)
	return err
}

// ReadPreface peeks br for the connection preface and discards it on match.
// It reports ErrBadPreface without consuming input if the bytes don't
// match, so the caller can decide whether more bytes might still arrive.
func ReadPreface(br *bufio.Reader) (bool, error) {
	b, err := br.Peek(len(Preface))
	if err != nil {
		return false, err
	}

	if !bytes.Equal(b, Preface) {
		return false, ErrBadPreface
	}

	_, err = br.Discard(len(Preface))
	return true, err
}

var frameHeaderPool = sync.Pool{
	New: func() interface{} {
		return &FrameHeader{}
	},
}

// FrameHeader is the 9-byte envelope wrapping a type-specific Frame payload
// (§3 "Frame record", §4.2 Framer).
//
// Use AcquireFrameHeader/ReleaseFrameHeader instead of constructing one
// directly. A FrameHeader MUST NOT be used from more than one goroutine at
// a time.
type FrameHeader struct {
	length int        // 24 bits
	kind   FrameType  // 8 bits
	flags  FrameFlags // 8 bits
	stream uint32     // 31 bits, reserved bit masked off

	maxLen uint32

	rawHeader [DefaultFrameSize]byte
	payload   []byte

	fr Frame
}

// AcquireFrameHeader returns a reset FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	fr := frameHeaderPool.Get().(*FrameHeader)
	fr.Reset()
	return fr
}

// ReleaseFrameHeader releases fr's body (if any) and returns fr to the pool.
func ReleaseFrameHeader(fr *FrameHeader) {
	if fr.fr != nil {
		ReleaseFrame(fr.fr)
	}
	frameHeaderPool.Put(fr)
}

// Reset clears fr to its zero wire state.
func (frh *FrameHeader) Reset() {
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.length = 0
	frh.maxLen = DefaultMaxFrameLen
	frh.fr = nil
	frh.payload = frh.payload[:0]
}

// Type returns the frame type.
func (frh *FrameHeader) Type() FrameType { return frh.kind }

// Flags returns the frame's flag set.
func (frh *FrameHeader) Flags() FrameFlags { return frh.flags }

// SetFlags replaces the frame's flag set.
func (frh *FrameHeader) SetFlags(flags FrameFlags) { frh.flags = flags }

// Stream returns the stream id (reserved bit already masked off).
func (frh *FrameHeader) Stream() uint32 { return frh.stream }

// SetStream sets the stream id.
func (frh *FrameHeader) SetStream(stream uint32) { frh.stream = stream & (1<<31 - 1) }

// Len returns the encoded payload length.
func (frh *FrameHeader) Len() int { return frh.length }

// MaxLen returns the negotiated maximum payload length; 0 means unbounded.
func (frh *FrameHeader) MaxLen() uint32 { return frh.maxLen }

// SetMaxLen sets the negotiated maximum payload length (SETTINGS_MAX_FRAME_SIZE).
func (frh *FrameHeader) SetMaxLen(max uint32) { frh.maxLen = max }

// Body returns the frame's typed payload, or nil if none has been attached.
func (frh *FrameHeader) Body() Frame { return frh.fr }

// SetBody attaches fr as the payload and adopts its type.
func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("h2: frame body cannot be nil")
	}

	frh.kind = fr.Type()
	frh.fr = fr
}

func (frh *FrameHeader) setPayload(payload []byte) {
	frh.payload = append(frh.payload[:0], payload...)
}

func (frh *FrameHeader) checkLen() error {
	if frh.maxLen != 0 && frh.length > int(frh.maxLen) {
		return ErrFrameSizeError
	}
	return nil
}

func (frh *FrameHeader) parseValues(header []byte) {
	frh.length = int(http2utils.BytesToUint24(header[:3]))
	frh.kind = FrameType(header[3])
	frh.flags = FrameFlags(header[4])
	frh.stream = http2utils.BytesToUint32(header[5:]) & (1<<31 - 1)
}

func (frh *FrameHeader) encodeValues(header []byte) {
	http2utils.Uint24ToBytes(header[:3], uint32(frh.length))
	header[3] = byte(frh.kind)
	header[4] = byte(frh.flags)
	http2utils.Uint32ToBytes(header[5:], frh.stream)
}

// ReadFrameFrom reads one frame header+payload from br, at the default
// SETTINGS_MAX_FRAME_SIZE.
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	return ReadFrameFromWithSize(br, DefaultMaxFrameLen)
}

// ReadFrameFromWithSize reads one frame header+payload from br, rejecting
// any frame whose declared length exceeds max (0 disables the check).
func ReadFrameFromWithSize(br *bufio.Reader, max uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	frh.maxLen = max

	_, err := frh.readFrom(br)
	if err != nil {
		ReleaseFrameHeader(frh)
		return nil, err
	}

	return frh, nil
}

// ReadFrom reads the header and payload from br and deserializes the body.
//
// Unlike io.ReaderFrom this does not read until io.EOF.
func (frh *FrameHeader) ReadFrom(br *bufio.Reader) (int64, error) {
	return frh.readFrom(br)
}

func (frh *FrameHeader) readFrom(br *bufio.Reader) (int64, error) {
	header, err := br.Peek(DefaultFrameSize)
	if err != nil {
		return 0, err
	}

	if _, err := br.Discard(DefaultFrameSize); err != nil {
		return 0, err
	}

	rn := int64(DefaultFrameSize)

	frh.parseValues(header)
	if err := frh.checkLen(); err != nil {
		return rn, err
	}

	if frh.kind < minFrameType || frh.kind > maxFrameType {
		if frh.length > 0 {
			if _, err := br.Discard(frh.length); err != nil {
				return rn, err
			}
		}
		return rn, ErrUnknownFrameType
	}

	frh.fr = AcquireFrame(frh.kind)

	if frh.length > 0 {
		frh.payload = http2utils.Resize(frh.payload, frh.length)

		n, err := io.ReadFull(br, frh.payload)
		rn += int64(n)
		if err != nil {
			return rn, err
		}
	}

	if err := frh.fr.Deserialize(frh); err != nil {
		return rn, err
	}

	return rn, nil
}

// WriteTo serializes the body (if any) and writes the header+payload to bw.
func (frh *FrameHeader) WriteTo(bw *bufio.Writer) (int64, error) {
	if frh.fr != nil {
		frh.fr.Serialize(frh)
	}

	frh.length = len(frh.payload)
	frh.encodeValues(frh.rawHeader[:])

	n, err := bw.Write(frh.rawHeader[:])
	wb := int64(n)
	if err != nil {
		return wb, err
	}

	n, err = bw.Write(frh.payload)
	wb += int64(n)

	return wb, err
}
