package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var (
	_ Frame            = (*Headers)(nil)
	_ FrameWithHeaders = (*Headers)(nil)
)

// Headers is the HEADERS frame.
//
// Flags: END_STREAM, END_HEADERS, PADDED, PRIORITY.
// https://tools.ietf.org/html/rfc7540#section-6.2
type Headers struct {
	hasPadding   bool
	hasPriority  bool
	priorityDep  uint32
	weight       byte
	endStream    bool
	endHeaders   bool
	rawHeaders   []byte // header-block fragment
}

var headersPool = sync.Pool{New: func() interface{} { return &Headers{} }}

func acquireHeaders() *Headers  { return headersPool.Get().(*Headers) }
func releaseHeaders(h *Headers) { headersPool.Put(h) }

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.hasPadding = false
	h.hasPriority = false
	h.priorityDep = 0
	h.weight = 0
	h.endStream = false
	h.endHeaders = false
	h.rawHeaders = h.rawHeaders[:0]
}

// CopyTo copies h's fields into other.
func (h *Headers) CopyTo(other *Headers) {
	other.hasPadding = h.hasPadding
	other.hasPriority = h.hasPriority
	other.priorityDep = h.priorityDep
	other.weight = h.weight
	other.endStream = h.endStream
	other.endHeaders = h.endHeaders
	other.rawHeaders = append(other.rawHeaders[:0], h.rawHeaders...)
}

// HeaderBlockFragment returns the (possibly partial) header-block bytes.
func (h *Headers) HeaderBlockFragment() []byte { return h.rawHeaders }

// Headers is an alias for HeaderBlockFragment kept for symmetry with the
// teacher's naming.
func (h *Headers) Headers() []byte { return h.rawHeaders }

// SetHeaderBlockFragment replaces the header-block bytes.
func (h *Headers) SetHeaderBlockFragment(b []byte) { h.rawHeaders = append(h.rawHeaders[:0], b...) }

func (h *Headers) EndStream() bool          { return h.endStream }
func (h *Headers) SetEndStream(value bool)  { h.endStream = value }
func (h *Headers) EndHeaders() bool         { return h.endHeaders }
func (h *Headers) SetEndHeaders(value bool) { h.endHeaders = value }
func (h *Headers) Padding() bool            { return h.hasPadding }
func (h *Headers) SetPadding(value bool)    { h.hasPadding = value }

// HasPriority reports whether the optional priority field is present. On
// the wire it is 5 bytes: a 31-bit stream dependency followed by a 1-byte
// weight.
func (h *Headers) HasPriority() bool { return h.hasPriority }

// SetPriority attaches the optional priority field carried by HEADERS.
func (h *Headers) SetPriority(streamDep uint32, weight byte) {
	h.hasPriority = true
	h.priorityDep = streamDep & (1<<31 - 1)
	h.weight = weight
}

func (h *Headers) PriorityDependency() uint32 { return h.priorityDep }
func (h *Headers) Weight() byte               { return h.weight }

func (h *Headers) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		var err error
		payload, err = http2utils.CutPadding(payload, fr.Len())
		if err != nil {
			return ErrMissingBytes
		}
	}

	if fr.Flags().Has(FlagPriority) {
		if len(payload) < 5 {
			return ErrMissingBytes
		}
		h.hasPriority = true
		h.priorityDep = http2utils.BytesToUint32(payload) & (1<<31 - 1)
		h.weight = payload[4]
		payload = payload[5:]
	}

	h.endStream = fr.Flags().Has(FlagEndStream)
	h.endHeaders = fr.Flags().Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)

	return nil
}

func (h *Headers) Serialize(fr *FrameHeader) {
	flags := fr.Flags()

	if h.endStream {
		flags = flags.Add(FlagEndStream)
	}
	if h.endHeaders {
		flags = flags.Add(FlagEndHeaders)
	}

	payload := h.rawHeaders

	if h.hasPriority {
		flags = flags.Add(FlagPriority)

		head := make([]byte, 5)
		http2utils.Uint32ToBytes(head[:4], h.priorityDep)
		head[4] = h.weight
		payload = append(head, payload...)
	}

	if h.hasPadding {
		flags = flags.Add(FlagPadded)
		payload = http2utils.AddPadding(payload)
	}

	fr.SetFlags(flags)
	fr.setPayload(payload)
}
