package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var (
	_ Frame            = (*PushPromise)(nil)
	_ FrameWithHeaders = (*PushPromise)(nil)
)

// PushPromise is the PUSH_PROMISE frame: a server-initiated promise to push
// a response on a new, reserved stream (§4.4 reserved_remote).
// https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	hasPadding   bool
	endHeaders   bool
	promisedID   uint32
	rawHeaders   []byte
}

var pushPromisePool = sync.Pool{New: func() interface{} { return &PushPromise{} }}

func acquirePushPromise() *PushPromise  { return pushPromisePool.Get().(*PushPromise) }
func releasePushPromise(p *PushPromise) { pushPromisePool.Put(p) }

func (p *PushPromise) Type() FrameType { return FramePushPromise }

func (p *PushPromise) Reset() {
	p.hasPadding = false
	p.endHeaders = false
	p.promisedID = 0
	p.rawHeaders = p.rawHeaders[:0]
}

func (p *PushPromise) HeaderBlockFragment() []byte { return p.rawHeaders }
func (p *PushPromise) SetHeaderBlockFragment(b []byte) {
	p.rawHeaders = append(p.rawHeaders[:0], b...)
}

func (p *PushPromise) EndHeaders() bool         { return p.endHeaders }
func (p *PushPromise) SetEndHeaders(value bool) { p.endHeaders = value }
func (p *PushPromise) Padding() bool            { return p.hasPadding }
func (p *PushPromise) SetPadding(value bool)    { p.hasPadding = value }

// PromisedStreamID returns the stream id the server reserves for the
// pushed response.
func (p *PushPromise) PromisedStreamID() uint32 { return p.promisedID }
func (p *PushPromise) SetPromisedStreamID(id uint32) {
	p.promisedID = id & (1<<31 - 1)
}

func (p *PushPromise) Deserialize(fr *FrameHeader) error {
	payload := fr.payload

	if fr.Flags().Has(FlagPadded) {
		var err error
		payload, err = http2utils.CutPadding(payload, fr.Len())
		if err != nil {
			return ErrMissingBytes
		}
	}

	if len(payload) < 4 {
		return ErrMissingBytes
	}

	p.promisedID = http2utils.BytesToUint32(payload) & (1<<31 - 1)
	p.endHeaders = fr.Flags().Has(FlagEndPushPromise)
	p.rawHeaders = append(p.rawHeaders[:0], payload[4:]...)

	return nil
}

func (p *PushPromise) Serialize(fr *FrameHeader) {
	flags := fr.Flags()
	if p.endHeaders {
		flags = flags.Add(FlagEndPushPromise)
	}

	head := make([]byte, 4)
	http2utils.Uint32ToBytes(head, p.promisedID)
	payload := append(head, p.rawHeaders...)

	if p.hasPadding {
		flags = flags.Add(FlagPadded)
		payload = http2utils.AddPadding(payload)
	}

	fr.SetFlags(flags)
	fr.setPayload(payload)
}
