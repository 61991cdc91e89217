package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var _ Frame = (*Priority)(nil)

// Priority is the PRIORITY frame: a stream's dependency and weight,
// advisory only (§4.5 notes priority ordering is left to the embedder).
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	streamDep uint32
	exclusive bool
	weight    byte
}

var priorityPool = sync.Pool{New: func() interface{} { return &Priority{} }}

func acquirePriority() *Priority  { return priorityPool.Get().(*Priority) }
func releasePriority(p *Priority) { priorityPool.Put(p) }

func (p *Priority) Type() FrameType { return FramePriority }

func (p *Priority) Reset() {
	p.streamDep = 0
	p.exclusive = false
	p.weight = 0
}

// CopyTo copies p's fields into other.
func (p *Priority) CopyTo(other *Priority) {
	other.streamDep = p.streamDep
	other.exclusive = p.exclusive
	other.weight = p.weight
}

func (p *Priority) StreamDep() uint32      { return p.streamDep }
func (p *Priority) SetStreamDep(id uint32) { p.streamDep = id & (1<<31 - 1) }
func (p *Priority) Exclusive() bool        { return p.exclusive }
func (p *Priority) SetExclusive(e bool)    { p.exclusive = e }
func (p *Priority) Weight() byte           { return p.weight }
func (p *Priority) SetWeight(w byte)       { p.weight = w }

func (p *Priority) Deserialize(fr *FrameHeader) error {
	payload := fr.payload
	if len(payload) != 5 {
		return ErrFrameSizeError
	}

	raw := http2utils.BytesToUint32(payload)
	p.exclusive = raw&(1<<31) != 0
	p.streamDep = raw & (1<<31 - 1)
	p.weight = payload[4]

	return nil
}

func (p *Priority) Serialize(fr *FrameHeader) {
	payload := make([]byte, 5)

	raw := p.streamDep
	if p.exclusive {
		raw |= 1 << 31
	}

	http2utils.Uint32ToBytes(payload[:4], raw)
	payload[4] = p.weight

	fr.setPayload(payload)
}
