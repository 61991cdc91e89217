package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var _ Frame = (*RstStream)(nil)

// RstStream is the RST_STREAM frame: abrupt stream termination (§7).
// https://tools.ietf.org/html/rfc7540#section-6.4
type RstStream struct {
	code ErrorCode
}

var rstStreamPool = sync.Pool{New: func() interface{} { return &RstStream{} }}

func acquireRstStream() *RstStream  { return rstStreamPool.Get().(*RstStream) }
func releaseRstStream(r *RstStream) { rstStreamPool.Put(r) }

func (r *RstStream) Type() FrameType { return FrameResetStream }

func (r *RstStream) Reset() { r.code = NoError }

func (r *RstStream) Code() ErrorCode     { return r.code }
func (r *RstStream) SetCode(c ErrorCode) { r.code = c }

func (r *RstStream) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 4 {
		return ErrFrameSizeError
	}

	r.code = ErrorCode(http2utils.BytesToUint32(fr.payload))

	return nil
}

func (r *RstStream) Serialize(fr *FrameHeader) {
	payload := make([]byte, 4)
	http2utils.Uint32ToBytes(payload, uint32(r.code))
	fr.setPayload(payload)
}
