package h2

import "fmt"

// FrameType identifies one of the ten HTTP/2 frame types (§3 "Frame record").
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameResetStream  FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9

	minFrameType FrameType = FrameData
	maxFrameType FrameType = FrameContinuation
)

var frameTypeNames = [...]string{
	FrameData:         "DATA",
	FrameHeaders:      "HEADERS",
	FramePriority:     "PRIORITY",
	FrameResetStream:  "RST_STREAM",
	FrameSettings:     "SETTINGS",
	FramePushPromise:  "PUSH_PROMISE",
	FramePing:         "PING",
	FrameGoAway:       "GOAWAY",
	FrameWindowUpdate: "WINDOW_UPDATE",
	FrameContinuation: "CONTINUATION",
}

func (ft FrameType) String() string {
	if int(ft) < len(frameTypeNames) {
		return frameTypeNames[ft]
	}
	return fmt.Sprintf("FrameType(0x%x)", uint8(ft))
}

// FrameFlags is the bit-set carried in the frame header's 8-bit flags field.
// Most flags are type-specific; two bits overload two meanings each (0x1:
// ACK for SETTINGS/PING, END_STREAM for DATA/HEADERS; 0x4: END_HEADERS for
// HEADERS/CONTINUATION, END_PUSH_PROMISE for PUSH_PROMISE), matching the
// wire format rather than inventing a union flag space.
type FrameFlags uint8

const (
	FlagAck          FrameFlags = 0x1
	FlagEndStream    FrameFlags = 0x1
	FlagEndSegment   FrameFlags = 0x2
	FlagEndHeaders   FrameFlags = 0x4
	FlagPadded       FrameFlags = 0x8
	FlagPriority     FrameFlags = 0x20
	FlagEndPushPromise FrameFlags = 0x4
)

func (f FrameFlags) Has(flag FrameFlags) bool {
	return f&flag == flag
}

func (f FrameFlags) Add(flag FrameFlags) FrameFlags {
	return f | flag
}

func (f FrameFlags) Delete(flag FrameFlags) FrameFlags {
	return f &^ flag
}

// Frame is the payload half of a frame record (§3). A FrameHeader owns the
// 9-byte envelope (length, type, flags, stream id); a Frame knows how to
// read/write its own type-specific payload against that envelope.
//
// Implementations MUST NOT be shared across goroutines; acquire one per use
// from AcquireFrame and return it with ReleaseFrame.
type Frame interface {
	Type() FrameType
	Reset()

	// Deserialize populates the frame from fr's raw payload and flags.
	// It returns a typed Error (via NewGoAwayError/NewResetStreamError) on
	// any shape violation, per §4.2.
	Deserialize(fr *FrameHeader) error

	// Serialize writes the frame's fields into fr's payload and flags ahead
	// of encoding the envelope.
	Serialize(fr *FrameHeader)
}

// AcquireFrame returns a pooled, reset Frame of the given type. Unknown
// types return nil; callers (the framer) must treat that as
// ErrUnknownFrameType.
func AcquireFrame(kind FrameType) Frame {
	switch kind {
	case FrameData:
		return acquireData()
	case FrameHeaders:
		return acquireHeaders()
	case FramePriority:
		return acquirePriority()
	case FrameResetStream:
		return acquireRstStream()
	case FrameSettings:
		return acquireSettingsFrame()
	case FramePushPromise:
		return acquirePushPromise()
	case FramePing:
		return acquirePing()
	case FrameGoAway:
		return acquireGoAway()
	case FrameWindowUpdate:
		return acquireWindowUpdate()
	case FrameContinuation:
		return acquireContinuation()
	default:
		return nil
	}
}

// ReleaseFrame resets fr and returns it to its type's pool.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}

	fr.Reset()

	switch v := fr.(type) {
	case *Data:
		releaseData(v)
	case *Headers:
		releaseHeaders(v)
	case *Priority:
		releasePriority(v)
	case *RstStream:
		releaseRstStream(v)
	case *Settings:
		releaseSettingsFrame(v)
	case *PushPromise:
		releasePushPromise(v)
	case *Ping:
		releasePing(v)
	case *GoAway:
		releaseGoAway(v)
	case *WindowUpdate:
		releaseWindowUpdate(v)
	case *Continuation:
		releaseContinuation(v)
	}
}

// FrameWithHeaders is implemented by the three frame types that can carry (or
// continue) a header block: HEADERS, PUSH_PROMISE and CONTINUATION.
type FrameWithHeaders interface {
	Frame
	HeaderBlockFragment() []byte
}
