package h2

import "sync"

var (
	_ Frame            = (*Continuation)(nil)
	_ FrameWithHeaders = (*Continuation)(nil)
)

// Continuation is the CONTINUATION frame: the overflow mechanism for a
// header block that didn't fit in its originating HEADERS/PUSH_PROMISE
// frame (§4.2 "header-block reassembly").
// https://tools.ietf.org/html/rfc7540#section-6.10
type Continuation struct {
	endHeaders bool
	rawHeaders []byte
}

var continuationPool = sync.Pool{New: func() interface{} { return &Continuation{} }}

func acquireContinuation() *Continuation  { return continuationPool.Get().(*Continuation) }
func releaseContinuation(c *Continuation) { continuationPool.Put(c) }

func (c *Continuation) Type() FrameType { return FrameContinuation }

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.rawHeaders = c.rawHeaders[:0]
}

func (c *Continuation) HeaderBlockFragment() []byte { return c.rawHeaders }
func (c *Continuation) SetHeaderBlockFragment(b []byte) {
	c.rawHeaders = append(c.rawHeaders[:0], b...)
}

func (c *Continuation) EndHeaders() bool         { return c.endHeaders }
func (c *Continuation) SetEndHeaders(value bool) { c.endHeaders = value }

func (c *Continuation) Deserialize(fr *FrameHeader) error {
	c.endHeaders = fr.Flags().Has(FlagEndHeaders)
	c.rawHeaders = append(c.rawHeaders[:0], fr.payload...)
	return nil
}

func (c *Continuation) Serialize(fr *FrameHeader) {
	if c.endHeaders {
		fr.SetFlags(fr.Flags().Add(FlagEndHeaders))
	}
	fr.setPayload(c.rawHeaders)
}
