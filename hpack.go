package h2

import (
	"sync"

	"golang.org/x/net/http2/hpack"
)

// EncodeInt appends the HPACK integer representation of i to dst using an
// N-bit prefix (0 <= n <= 8), per RFC 7541 §5.1. N=0 skips the prefix byte
// entirely and encodes i directly as base-128 continuation digits (§4.1).
func EncodeInt(dst []byte, n uint, i uint64) []byte {
	if n == 0 {
		for i >= 128 {
			dst = append(dst, byte(i%128+128))
			i /= 128
		}
		if i == 0 && len(dst) == 0 {
			return dst
		}
		return append(dst, byte(i))
	}

	max := uint64(1)<<n - 1

	if i < max {
		return append(dst, byte(i))
	}

	dst = append(dst, byte(max))
	i -= max

	for i >= 128 {
		dst = append(dst, byte(i%128+128))
		i /= 128
	}

	return append(dst, byte(i))
}

// DecodeInt reads an HPACK integer with an N-bit prefix starting at src[0]
// (or, when n==0, no prefix byte at all), returning the decoded value and
// the number of bytes consumed.
func DecodeInt(src []byte, n uint) (uint64, int, error) {
	if n == 0 {
		if len(src) == 0 {
			return 0, 0, nil
		}

		var i uint64
		var m uint
		for idx := 0; ; idx++ {
			if idx >= len(src) {
				return 0, 0, ErrMalformedInteger
			}

			b := src[idx]
			i += uint64(b&127) << m
			m += 7

			if b&128 == 0 {
				return i, idx + 1, nil
			}
		}
	}

	if len(src) == 0 {
		return 0, 0, ErrMalformedInteger
	}

	max := uint64(1)<<n - 1
	i := uint64(src[0]) & max

	if i < max {
		return i, 1, nil
	}

	var m uint
	for idx := 1; ; idx++ {
		if idx >= len(src) {
			return 0, 0, ErrMalformedInteger
		}

		b := src[idx]
		i += uint64(b&127) << m
		m += 7

		if b&128 == 0 {
			return i, idx + 1, nil
		}
	}
}

// HeaderField is a single decoded name/value pair (§4.1 "header list").
type HeaderField struct {
	name      string
	value     string
	sensitive bool
}

var headerFieldPool = sync.Pool{New: func() interface{} { return &HeaderField{} }}

// AcquireHeaderField returns a pooled, reset HeaderField.
func AcquireHeaderField() *HeaderField {
	hf := headerFieldPool.Get().(*HeaderField)
	hf.Reset()
	return hf
}

// ReleaseHeaderField returns hf to the pool.
func ReleaseHeaderField(hf *HeaderField) { headerFieldPool.Put(hf) }

func (hf *HeaderField) Reset() {
	hf.name = ""
	hf.value = ""
	hf.sensitive = false
}

func (hf *HeaderField) Name() string          { return hf.name }
func (hf *HeaderField) SetName(name string)   { hf.name = name }
func (hf *HeaderField) Value() string         { return hf.value }
func (hf *HeaderField) SetValue(value string) { hf.value = value }
func (hf *HeaderField) Sensitive() bool       { return hf.sensitive }
func (hf *HeaderField) SetSensitive(s bool)   { hf.sensitive = s }

// HeaderCompressor is the decompression/compression context an embedder
// plugs into the engine to turn header-block fragments into HeaderFields
// and back (§1, §4.2 "collaborates with a header-compression context it
// does not own"). It owns the HPACK dynamic table across the whole
// connection's lifetime, not per-stream.
type HeaderCompressor interface {
	// Decode appends the header fields encoded in block to dst, returning
	// the grown slice. It returns CompressionError on any HPACK violation.
	Decode(dst []*HeaderField, block []byte) ([]*HeaderField, error)

	// Encode appends the HPACK encoding of fields to dst, returning the
	// grown slice.
	Encode(dst []byte, fields []*HeaderField) []byte

	// SetMaxDynamicTableSize applies a peer SETTINGS_HEADER_TABLE_SIZE
	// change to the compression context.
	SetMaxDynamicTableSize(size uint32)
}

// hpackCompressor is the default HeaderCompressor, backed by the
// standard x/net HPACK codec.
type hpackCompressor struct {
	enc *hpack.Encoder
	buf []byte
	dec *hpack.Decoder
}

// NewHeaderCompressor returns a HeaderCompressor backed by
// golang.org/x/net/http2/hpack, the library this engine expects any
// embedder to already depend on for decompression (§1).
func NewHeaderCompressor() HeaderCompressor {
	c := &hpackCompressor{}
	c.enc = hpack.NewEncoder(&growBuffer{c: c})
	c.dec = hpack.NewDecoder(4096, nil)
	return c
}

// growBuffer adapts hpack.Encoder's io.Writer requirement onto
// hpackCompressor's reusable buffer.
type growBuffer struct{ c *hpackCompressor }

func (g *growBuffer) Write(p []byte) (int, error) {
	g.c.buf = append(g.c.buf, p...)
	return len(p), nil
}

func (c *hpackCompressor) Decode(dst []*HeaderField, block []byte) ([]*HeaderField, error) {
	fields, err := c.dec.DecodeFull(block)
	if err != nil {
		return dst, NewGoAwayError(CompressionError, err.Error())
	}

	for _, f := range fields {
		hf := AcquireHeaderField()
		hf.SetName(f.Name)
		hf.SetValue(f.Value)
		hf.SetSensitive(f.Sensitive)
		dst = append(dst, hf)
	}

	return dst, nil
}

func (c *hpackCompressor) Encode(dst []byte, fields []*HeaderField) []byte {
	c.buf = c.buf[:0]

	for _, hf := range fields {
		c.enc.WriteField(hpack.HeaderField{
			Name:      hf.Name(),
			Value:     hf.Value(),
			Sensitive: hf.Sensitive(),
		})
	}

	return append(dst, c.buf...)
}

func (c *hpackCompressor) SetMaxDynamicTableSize(size uint32) {
	c.enc.SetMaxDynamicTableSize(size)
	c.dec.SetMaxDynamicTableSize(size)
}
