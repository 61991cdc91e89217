package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var _ Frame = (*GoAway)(nil)

// GoAway is the GOAWAY frame: a terminal notice naming the last stream id
// the sender will process, plus an error code and optional debug data
// (§4.5 "Connection error", §7).
// https://tools.ietf.org/html/rfc7540#section-6.8
type GoAway struct {
	lastStreamID uint32
	code         ErrorCode
	debugData    []byte
}

var goAwayPool = sync.Pool{New: func() interface{} { return &GoAway{} }}

func acquireGoAway() *GoAway  { return goAwayPool.Get().(*GoAway) }
func releaseGoAway(g *GoAway) { goAwayPool.Put(g) }

func (g *GoAway) Type() FrameType { return FrameGoAway }

func (g *GoAway) Reset() {
	g.lastStreamID = 0
	g.code = NoError
	g.debugData = g.debugData[:0]
}

func (g *GoAway) LastStreamID() uint32      { return g.lastStreamID }
func (g *GoAway) SetLastStreamID(id uint32) { g.lastStreamID = id & (1<<31 - 1) }
func (g *GoAway) Code() ErrorCode           { return g.code }
func (g *GoAway) SetCode(c ErrorCode)       { g.code = c }
func (g *GoAway) DebugData() []byte         { return g.debugData }
func (g *GoAway) SetDebugData(b []byte)     { g.debugData = append(g.debugData[:0], b...) }

func (g *GoAway) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) < 8 {
		return ErrMissingBytes
	}

	g.lastStreamID = http2utils.BytesToUint32(fr.payload) & (1<<31 - 1)
	g.code = ErrorCode(http2utils.BytesToUint32(fr.payload[4:8]))
	g.debugData = append(g.debugData[:0], fr.payload[8:]...)

	return nil
}

func (g *GoAway) Serialize(fr *FrameHeader) {
	payload := make([]byte, 8, 8+len(g.debugData))
	http2utils.Uint32ToBytes(payload[:4], g.lastStreamID)
	http2utils.Uint32ToBytes(payload[4:8], uint32(g.code))
	payload = append(payload, g.debugData...)

	fr.setPayload(payload)
}
