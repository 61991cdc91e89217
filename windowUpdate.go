package h2

import (
	"sync"

	"github.com/gvsurenderreddy/http-2/http2utils"
)

var _ Frame = (*WindowUpdate)(nil)

// WindowUpdate is the WINDOW_UPDATE frame: an additive flow-control credit
// increment, connection-scoped on stream 0 or stream-scoped otherwise
// (§4.3).
// https://tools.ietf.org/html/rfc7540#section-6.9
type WindowUpdate struct {
	increment uint32
}

var windowUpdatePool = sync.Pool{New: func() interface{} { return &WindowUpdate{} }}

func acquireWindowUpdate() *WindowUpdate  { return windowUpdatePool.Get().(*WindowUpdate) }
func releaseWindowUpdate(w *WindowUpdate) { windowUpdatePool.Put(w) }

func (w *WindowUpdate) Type() FrameType { return FrameWindowUpdate }

func (w *WindowUpdate) Reset() { w.increment = 0 }

// Increment returns the window size increment. A zero increment is a
// PROTOCOL_ERROR on both the connection and stream scopes (§4.3).
func (w *WindowUpdate) Increment() uint32 { return w.increment }

func (w *WindowUpdate) SetIncrement(n uint32) { w.increment = n & (1<<31 - 1) }

func (w *WindowUpdate) Deserialize(fr *FrameHeader) error {
	if len(fr.payload) != 4 {
		return ErrFrameSizeError
	}

	w.increment = http2utils.BytesToUint32(fr.payload) & (1<<31 - 1)

	return nil
}

func (w *WindowUpdate) Serialize(fr *FrameHeader) {
	payload := make([]byte, 4)
	http2utils.Uint32ToBytes(payload, w.increment)
	fr.setPayload(payload)
}
