package h2

import (
	"bytes"
	"testing"
)

func TestEncodeIntS1(t *testing.T) {
	cases := []struct {
		n    uint
		i    uint64
		want []byte
	}{
		{5, 10, []byte{0x0A}},
		{5, 1337, []byte{0x1F, 0x9A, 0x0A}},
		{0, 42, []byte{0x2A}},
	}

	for _, c := range cases {
		got := EncodeInt(nil, c.n, c.i)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("EncodeInt(%d, %d) = %v, want %v", c.n, c.i, got, c.want)
		}
	}
}

func TestDecodeIntS1(t *testing.T) {
	cases := []struct {
		n   uint
		enc []byte
		i   uint64
	}{
		{5, []byte{0x0A}, 10},
		{5, []byte{0x1F, 0x9A, 0x0A}, 1337},
		{0, []byte{0x2A}, 42},
	}

	for _, c := range cases {
		got, n, err := DecodeInt(c.enc, c.n)
		if err != nil {
			t.Fatalf("DecodeInt(%v, %d): %v", c.enc, c.n, err)
		}
		if got != c.i {
			t.Fatalf("DecodeInt(%v, %d) = %d, want %d", c.enc, c.n, got, c.i)
		}
		if n != len(c.enc) {
			t.Fatalf("DecodeInt(%v, %d) consumed %d bytes, want %d", c.enc, c.n, n, len(c.enc))
		}
	}
}

func TestIntRoundTrip(t *testing.T) {
	for n := uint(0); n <= 8; n++ {
		for i := uint64(0); i < 1<<20; i += 997 {
			enc := EncodeInt(nil, n, i)
			got, consumed, err := DecodeInt(enc, n)
			if err != nil {
				t.Fatalf("N=%d I=%d: %v", n, i, err)
			}
			if got != i {
				t.Fatalf("N=%d I=%d: round-trip got %d", n, i, got)
			}
			if consumed != len(enc) {
				t.Fatalf("N=%d I=%d: consumed %d, want %d", n, i, consumed, len(enc))
			}
		}
	}
}

func TestDecodeIntMalformed(t *testing.T) {
	_, _, err := DecodeInt([]byte{0xFF}, 5)
	if err != ErrMalformedInteger {
		t.Fatalf("got %v, want ErrMalformedInteger", err)
	}
}

func TestHeaderCompressorRoundTrip(t *testing.T) {
	c := NewHeaderCompressor()

	hf := AcquireHeaderField()
	hf.SetName(":method")
	hf.SetValue("GET")
	defer ReleaseHeaderField(hf)

	block := c.Encode(nil, []*HeaderField{hf})

	var dst []*HeaderField
	dst, err := c.Decode(dst, block)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer releaseHeaderFields(dst)

	if len(dst) != 1 {
		t.Fatalf("got %d fields, want 1", len(dst))
	}
	if dst[0].Name() != ":method" || dst[0].Value() != "GET" {
		t.Fatalf("got %s=%s, want :method=GET", dst[0].Name(), dst[0].Value())
	}
}

func releaseHeaderFields(fields []*HeaderField) {
	for _, hf := range fields {
		ReleaseHeaderField(hf)
	}
}
