package h2

import "sync"

var _ Frame = (*Ping)(nil)

// Ping is the PING frame: 8 opaque bytes the peer must echo back with ACK
// set (§6.7).
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack  bool
	data [8]byte
}

var pingPool = sync.Pool{New: func() interface{} { return &Ping{} }}

func acquirePing() *Ping  { return pingPool.Get().(*Ping) }
func releasePing(p *Ping) { pingPool.Put(p) }

func (p *Ping) Type() FrameType { return FramePing }

func (p *Ping) Reset() {
	p.ack = false
	p.data = [8]byte{}
}

func (p *Ping) IsAck() bool     { return p.ack }
func (p *Ping) SetAck(ack bool) { p.ack = ack }

func (p *Ping) Data() []byte { return p.data[:] }

func (p *Ping) SetData(b []byte) {
	p.data = [8]byte{}
	copy(p.data[:], b)
}

func (p *Ping) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 8 {
		return ErrFrameSizeError
	}

	p.ack = fr.Flags().Has(FlagAck)
	copy(p.data[:], fr.payload)

	return nil
}

func (p *Ping) Serialize(fr *FrameHeader) {
	if p.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
	}

	payload := make([]byte, 8)
	copy(payload, p.data[:])
	fr.setPayload(payload)
}
