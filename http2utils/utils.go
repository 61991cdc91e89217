// Package http2utils holds the small byte-twiddling helpers shared by the
// framer and the header-compression primitives: big-endian 24/32-bit
// encoding, padding, and buffer resizing. None of it is HTTP/2-specific
// enough to live in package h2 itself.
package http2utils

import (
	"fmt"

	"github.com/valyala/fastrand"
)

func Uint24ToBytes(b []byte, n uint32) {
	_ = b[2] // bound checking
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

func BytesToUint24(b []byte) uint32 {
	_ = b[2] // bound checking
	return uint32(b[0])<<16 |
		uint32(b[1])<<8 |
		uint32(b[2])
}

func Uint32ToBytes(b []byte, n uint32) {
	_ = b[3] // bound checking
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

func AppendUint32Bytes(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func BytesToUint32(b []byte) uint32 {
	_ = b[3] // bound checking
	return uint32(b[0])<<24 |
		uint32(b[1])<<16 |
		uint32(b[2])<<8 |
		uint32(b[3])
}

// Resize grows b so that it has exactly neededLen usable bytes, reusing
// spare capacity where possible.
func Resize(b []byte, neededLen int) []byte {
	b = b[:cap(b)]

	if n := neededLen - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}

	return b[:neededLen]
}

// CutPadding strips the one-byte pad-length prefix and the trailing padding
// from a payload of the given declared length, per the PADDED flag contract
// shared by DATA, HEADERS and PUSH_PROMISE.
func CutPadding(payload []byte, length int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("http2utils: padded frame has empty payload")
	}

	pad := int(payload[0])
	if length-pad-1 < 0 || len(payload) < length-pad-1 {
		return nil, fmt.Errorf("http2utils: padding %d exceeds payload length %d", pad, length)
	}

	return payload[1 : length-pad], nil
}

// AddPadding prefixes b with a random pad-length byte and appends that many
// zero-filled padding bytes, mirroring the teacher's PADDED-flag jitter.
func AddPadding(b []byte) []byte {
	n := int(fastrand.Uint32n(256-9)) + 9
	nn := len(b)

	b = Resize(b, nn+n+1)
	copy(b[1:], b[:nn])
	b[0] = byte(n)

	for i := nn + 1; i < len(b); i++ {
		b[i] = 0
	}

	return b
}
