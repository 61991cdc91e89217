package h2

import "fmt"

// ErrorCode is one of the HTTP/2 error codes (http://httpwg.org/specs/rfc7540.html#ErrorCodes).
//
// Error codes are carried as-is on the wire by RST_STREAM and GOAWAY, so the
// numeric values below are fixed by the spec, not by this package.
type ErrorCode uint32

const (
	NoError              ErrorCode = 0x0
	ProtocolError        ErrorCode = 0x1
	InternalError        ErrorCode = 0x2
	FlowControlError     ErrorCode = 0x3
	SettingsTimeoutError ErrorCode = 0x4
	StreamClosedError    ErrorCode = 0x5
	FrameSizeError       ErrorCode = 0x6
	RefusedStreamError   ErrorCode = 0x7
	CancelError          ErrorCode = 0x8
	CompressionError     ErrorCode = 0x9
	ConnectError         ErrorCode = 0xa
	EnhanceYourCalmError ErrorCode = 0xb
)

var errorCodeNames = [...]string{
	NoError:              "NO_ERROR",
	ProtocolError:        "PROTOCOL_ERROR",
	InternalError:        "INTERNAL_ERROR",
	FlowControlError:     "FLOW_CONTROL_ERROR",
	SettingsTimeoutError: "SETTINGS_TIMEOUT",
	StreamClosedError:    "STREAM_CLOSED",
	FrameSizeError:       "FRAME_SIZE_ERROR",
	RefusedStreamError:   "REFUSED_STREAM",
	CancelError:          "CANCEL",
	CompressionError:     "COMPRESSION_ERROR",
	ConnectError:         "CONNECT_ERROR",
	EnhanceYourCalmError: "ENHANCE_YOUR_CALM",
}

func (e ErrorCode) String() string {
	if int(e) < len(errorCodeNames) && errorCodeNames[e] != "" {
		return errorCodeNames[e]
	}
	return fmt.Sprintf("UNKNOWN_ERROR(0x%x)", uint32(e))
}

// scope distinguishes a fatal connection error (remediated with a terminal
// RST_STREAM(0, code), per §4.5) from a stream error (remediated with
// RST_STREAM on the one stream).
type scope uint8

const (
	scopeStream scope = iota
	scopeConnection
)

// Error is the single typed error value the engine raises. It always
// carries an ErrorCode and knows whether it is stream-scoped (surfaced as
// RST_STREAM on that stream) or connection-scoped (surfaced as a terminal
// RST_STREAM on stream 0 while the connection closes), per §7.
type Error struct {
	Code    ErrorCode
	Message string
	scope   scope
	stream  uint32
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConnectionError reports whether e must close the whole connection.
func (e Error) IsConnectionError() bool {
	return e.scope == scopeConnection
}

// Stream returns the stream id the error applies to. It is only meaningful
// for stream-scoped errors.
func (e Error) Stream() uint32 {
	return e.stream
}

// NewResetStreamError builds a stream error: the engine will emit
// RST_STREAM(stream, code) and transition that stream to closed.
func NewResetStreamError(stream uint32, code ErrorCode, message string) Error {
	return Error{Code: code, Message: message, scope: scopeStream, stream: stream}
}

// NewGoAwayError builds a connection error: the engine will transition to
// closed and emit a terminal RST_STREAM(0, code) (§4.5 "Connection error").
func NewGoAwayError(code ErrorCode, message string) Error {
	return Error{Code: code, Message: message, scope: scopeConnection}
}

var (
	// ErrMissingBytes is returned by Frame.Deserialize implementations when
	// the declared payload is shorter than the type's fixed-size shape
	// requires (§4.2 ProtocolError).
	ErrMissingBytes = NewGoAwayError(ProtocolError, "frame payload is missing required bytes")

	// ErrFrameSizeError is returned when a frame's declared length exceeds
	// the maximum frame size, and by the fixed-size frame types (PING,
	// PRIORITY, RST_STREAM, WINDOW_UPDATE, SETTINGS) when the payload length
	// does not fit their shape. A payload shorter than its declared length
	// is reported as the reader's own error, not as this value.
	ErrFrameSizeError = NewGoAwayError(FrameSizeError, "frame length disagrees with payload")

	// ErrUnknownFrameType is returned for a frame type code outside 0x0-0x9.
	ErrUnknownFrameType = NewGoAwayError(ProtocolError, "unknown frame type")

	// ErrMalformedInteger is returned by the integer-coding primitives (§4.1)
	// when the input ends mid-continuation.
	ErrMalformedInteger = fmt.Errorf("h2: malformed integer: input ends mid-continuation")

	// ErrBadPreface is returned when the connection preface does not match
	// the 24-byte constant (§6).
	ErrBadPreface = fmt.Errorf("h2: bad connection preface")
)
