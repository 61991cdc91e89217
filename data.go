package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var _ Frame = (*Data)(nil)

// Data is the DATA frame: opaque application bytes.
//
// Flags: END_STREAM, END_SEGMENT, PADDED.
// https://tools.ietf.org/html/rfc7540#section-6.1
type Data struct {
	endStream  bool
	endSegment bool
	hasPadding bool
	b          []byte
}

var dataPool = sync.Pool{New: func() interface{} { return &Data{} }}

func acquireData() *Data { return dataPool.Get().(*Data) }
func releaseData(d *Data) { dataPool.Put(d) }

func (d *Data) Type() FrameType { return FrameData }

func (d *Data) Reset() {
	d.endStream = false
	d.endSegment = false
	d.hasPadding = false
	d.b = d.b[:0]
}

// CopyTo copies d's fields into other.
func (d *Data) CopyTo(other *Data) {
	other.endStream = d.endStream
	other.endSegment = d.endSegment
	other.hasPadding = d.hasPadding
	other.b = append(other.b[:0], d.b...)
}

func (d *Data) EndStream() bool          { return d.endStream }
func (d *Data) SetEndStream(value bool)  { d.endStream = value }
func (d *Data) EndSegment() bool         { return d.endSegment }
func (d *Data) SetEndSegment(value bool) { d.endSegment = value }
func (d *Data) Padding() bool            { return d.hasPadding }
func (d *Data) SetPadding(value bool)    { d.hasPadding = value }

// Data returns the frame's payload bytes.
func (d *Data) Data() []byte { return d.b }

// SetData replaces the payload bytes.
func (d *Data) SetData(b []byte) { d.b = append(d.b[:0], b...) }

// Len returns the payload length in bytes.
func (d *Data) Len() int { return len(d.b) }

func (d *Data) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		var err error
		payload, err = http2utils.CutPadding(payload, fr.Len())
		if err != nil {
			return ErrMissingBytes
		}
	}

	d.endStream = fr.Flags().Has(FlagEndStream)
	d.endSegment = fr.Flags().Has(FlagEndSegment)
	d.b = append(d.b[:0], payload...)

	return nil
}

func (d *Data) Serialize(fr *FrameHeader) {
	flags := fr.Flags()

	if d.endStream {
		flags = flags.Add(FlagEndStream)
	}
	if d.endSegment {
		flags = flags.Add(FlagEndSegment)
	}

	payload := d.b

	if d.hasPadding {
		flags = flags.Add(FlagPadded)
		payload = http2utils.AddPadding(payload)
	}

	fr.SetFlags(flags)
	fr.setPayload(payload)
}
