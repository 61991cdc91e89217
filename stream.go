package h2

// StreamState is a node in the per-stream lifecycle (§4.4).
type StreamState uint8

const (
	StreamIdle StreamState = iota
	StreamReservedLocal
	StreamReservedRemote
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

var streamStateNames = [...]string{
	StreamIdle:             "idle",
	StreamReservedLocal:    "reserved_local",
	StreamReservedRemote:   "reserved_remote",
	StreamOpen:             "open",
	StreamHalfClosedLocal:  "half_closed_local",
	StreamHalfClosedRemote: "half_closed_remote",
	StreamClosed:           "closed",
}

func (s StreamState) String() string { return streamStateNames[s] }

// ClosedCause disambiguates why a stream entered StreamClosed, since the
// state alone can't tell a local reset from a clean two-sided finish.
type ClosedCause uint8

const (
	CauseNone ClosedCause = iota
	CauseLocalReset
	CauseRemoteReset
	CauseLocalFin
	CauseRemoteFin
)

// StreamObserver receives the semantic events a Stream emits (§4.4). All
// methods are optional to "handle" in the sense that a no-op Connection
// default is fine; nil fields are never called.
type StreamObserver interface {
	OnActive(s *Stream)
	OnHeaders(s *Stream, fields []*HeaderField, endStream bool)
	OnData(s *Stream, data []byte, endStream bool)
	OnHalfClose(s *Stream)
	OnClose(s *Stream)
	OnPriority(s *Stream)
	OnWindow(s *Stream)
}

// Stream is one multiplexed, bidirectional sequence of frames (§3, §4.4).
// A Stream never performs I/O; it asks its owning Connection to emit
// frames and reports events to the Connection's StreamObserver.
type Stream struct {
	id          uint32
	priority    uint32
	state       StreamState
	closedCause ClosedCause

	sendWindow     int64
	recvWindow     int64
	bufferedAmount int64

	conn     *Connection
	observer StreamObserver

	active bool

	// header reassembly (§4.4 "headers" event, §4.2 header block)
	reassembling    bool
	headerBlock     []byte
	headerEndStream bool

	// promisePending is true while reassembling this stream's own
	// PUSH_PROMISE request header block (as opposed to a regular HEADERS
	// block); refusedPush is true when that block should be discarded,
	// not activated, once fully reassembled (§4.5 "PUSH_PROMISE handling").
	promisePending bool
	refusedPush    bool
}

func newStream(conn *Connection, id uint32) *Stream {
	return &Stream{
		id:         id,
		priority:   DefaultPriority,
		state:      StreamIdle,
		conn:       conn,
		observer:   conn.observer,
		sendWindow: int64(conn.peerInitialWindow()),
		recvWindow: int64(conn.ownInitialWindow()),
	}
}

func (s *Stream) ID() uint32             { return s.id }
func (s *Stream) State() StreamState     { return s.state }
func (s *Stream) ClosedCause() ClosedCause { return s.closedCause }
func (s *Stream) Priority() uint32       { return s.priority }

// Window returns the stream's current send credit. It may be negative
// after a SETTINGS_INITIAL_WINDOW_SIZE shrink (§4.3).
func (s *Stream) Window() int64 { return s.sendWindow }

// BufferedAmount returns the bytes of this stream's DATA still queued in
// the connection send buffer (§6).
func (s *Stream) BufferedAmount() int64 { return s.bufferedAmount }

// SetPriority reprioritizes the stream locally and emits a PRIORITY frame
// (§4.4, §6).
func (s *Stream) SetPriority(n uint32) {
	s.priority = n

	fr := acquirePriority()
	fr.SetStreamDep(0)
	fr.SetWeight(0)
	s.conn.sendFrame(s.id, fr)

	s.fireOnPriority()
}

func (s *Stream) fireOnActive() {
	if s.active {
		return
	}
	s.active = true
	s.conn.activeStreamCount++
	if s.observer != nil {
		s.observer.OnActive(s)
	}
}

func (s *Stream) fireOnPriority() {
	if s.observer != nil {
		s.observer.OnPriority(s)
	}
}

func (s *Stream) fireOnWindow() {
	if s.observer != nil {
		s.observer.OnWindow(s)
	}
}

func (s *Stream) fireOnHalfClose() {
	if s.observer != nil {
		s.observer.OnHalfClose(s)
	}
}

func (s *Stream) fireOnClose() {
	if s.active {
		s.conn.activeStreamCount--
	}
	if s.observer != nil {
		s.observer.OnClose(s)
	}
}

// isActiveState reports whether state counts toward active_stream_count
// (§3 "active-stream-count", §8 invariant 4).
func (state StreamState) isActiveState() bool {
	switch state {
	case StreamOpen, StreamHalfClosedLocal, StreamHalfClosedRemote:
		return true
	}
	return false
}

// resetLocally transitions the stream to closed with cause local_rst and
// emits RST_STREAM, per "Any frame received in a state in which it is not
// permitted" (§4.4) and the embedder-invoked Close operation (§6).
func (s *Stream) resetLocally(code ErrorCode) {
	if s.state == StreamClosed {
		return
	}

	fr := acquireRstStream()
	fr.SetCode(code)
	s.conn.sendFrame(s.id, fr)

	s.transitionTo(StreamClosed, CauseLocalReset)
}

func (s *Stream) transitionTo(next StreamState, cause ClosedCause) {
	wasActive := s.state.isActiveState()
	s.state = next
	if cause != CauseNone {
		s.closedCause = cause
	}

	if !wasActive && next.isActiveState() {
		s.fireOnActive()
	}

	if next == StreamClosed {
		s.fireOnClose()
	}
}

// handleReceivedFrame applies a peer-sent frame to the stream's state
// machine (§4.4 transition table) and dispatches semantic events.
func (s *Stream) handleReceivedFrame(fr Frame) error {
	if s.reassembling {
		switch fr.(type) {
		case *Continuation, *Headers:
		default:
			return NewGoAwayError(ProtocolError, "frame interleaved with header block")
		}
	}

	switch f := fr.(type) {
	case *Headers:
		return s.recvHeaders(f.HeaderBlockFragment(), f.EndHeaders(), f.EndStream())
	case *Continuation:
		return s.recvContinuation(f.HeaderBlockFragment(), f.EndHeaders())
	case *Data:
		return s.recvData(f.Data(), f.EndStream())
	case *Priority:
		s.fireOnPriority()
		return nil
	case *RstStream:
		return s.recvRstStream(f.Code())
	case *WindowUpdate:
		return s.recvWindowUpdate(f.Increment())
	}
	return nil
}

func (s *Stream) verifyReceivable(frameIsHeaders bool) error {
	switch s.state {
	case StreamClosed:
		return NewResetStreamError(s.id, StreamClosedError, "frame received on closed stream")
	case StreamHalfClosedRemote:
		return NewResetStreamError(s.id, StreamClosedError, "frame received after remote half-close")
	}
	return nil
}

func (s *Stream) recvHeaders(block []byte, endHeaders, endStream bool) error {
	if err := s.verifyReceivable(true); err != nil {
		return err
	}

	switch s.state {
	case StreamIdle:
		s.transitionTo(StreamOpen, CauseNone)
	case StreamReservedRemote:
		s.transitionTo(StreamHalfClosedLocal, CauseNone)
	default:
		return NewResetStreamError(s.id, ProtocolError, "HEADERS received in a state with no recv HEADERS transition")
	}

	s.reassembling = !endHeaders
	s.headerBlock = append(s.headerBlock[:0], block...)
	s.headerEndStream = endStream

	if endHeaders {
		return s.finishHeaders()
	}
	return nil
}

func (s *Stream) recvContinuation(block []byte, endHeaders bool) error {
	if !s.reassembling {
		return NewGoAwayError(ProtocolError, "CONTINUATION without preceding HEADERS")
	}

	s.headerBlock = append(s.headerBlock, block...)

	if !endHeaders {
		return nil
	}

	s.reassembling = false

	if s.promisePending {
		return s.conn.finishPromisedHeaders(s)
	}
	return s.finishHeaders()
}

func (s *Stream) finishHeaders() error {
	var fields []*HeaderField
	fields, err := s.conn.compressor.Decode(fields, s.headerBlock)
	if err != nil {
		return err
	}

	if s.observer != nil {
		s.observer.OnHeaders(s, fields, s.headerEndStream)
	}

	if s.headerEndStream {
		return s.recvEndStream()
	}
	return nil
}

func (s *Stream) recvData(data []byte, endStream bool) error {
	if err := s.verifyReceivable(false); err != nil {
		return err
	}

	s.recvWindow -= int64(len(data))
	s.conn.recvWindow -= int64(len(data))

	if s.observer != nil {
		s.observer.OnData(s, data, endStream)
	}

	if endStream {
		return s.recvEndStream()
	}
	return nil
}

func (s *Stream) recvEndStream() error {
	switch s.state {
	case StreamOpen:
		s.transitionTo(StreamHalfClosedRemote, CauseNone)
		s.fireOnHalfClose()
	case StreamHalfClosedLocal:
		s.transitionTo(StreamClosed, CauseRemoteFin)
	default:
		s.transitionTo(StreamHalfClosedRemote, CauseNone)
		s.fireOnHalfClose()
	}
	return nil
}

func (s *Stream) recvRstStream(code ErrorCode) error {
	switch s.state {
	case StreamIdle:
		return NewGoAwayError(ProtocolError, "RST_STREAM on idle stream")
	}
	s.transitionTo(StreamClosed, CauseRemoteReset)
	return nil
}

func (s *Stream) recvWindowUpdate(increment uint32) error {
	if increment == 0 {
		return NewResetStreamError(s.id, ProtocolError, "zero-length WINDOW_UPDATE increment")
	}

	s.sendWindow += int64(increment)
	s.fireOnWindow()
	s.conn.drainSendBuffer()

	return nil
}

// sendHeadersLocal drives the local half of the state machine when the
// embedder calls Stream.Headers (§6).
func (s *Stream) sendHeadersLocal(endStream bool) {
	switch s.state {
	case StreamIdle:
		s.transitionTo(StreamOpen, CauseNone)
	case StreamReservedLocal:
		s.transitionTo(StreamHalfClosedRemote, CauseNone)
	}

	if endStream {
		s.sendEndStreamLocal()
	}
}

func (s *Stream) sendEndStreamLocal() {
	switch s.state {
	case StreamOpen:
		s.transitionTo(StreamHalfClosedLocal, CauseNone)
		s.fireOnHalfClose()
	case StreamHalfClosedRemote:
		s.transitionTo(StreamClosed, CauseLocalFin)
		s.conn.streams.Del(s.id)
	}
}

// Headers sends a HEADERS frame built from fields, driving the local
// state machine (§6 "headers(map, end_stream?)").
func (s *Stream) Headers(fields []*HeaderField, endStream bool) {
	block := s.conn.compressor.Encode(nil, fields)

	fr := acquireHeaders()
	fr.SetEndStream(endStream)
	fr.SetEndHeaders(true)
	fr.SetHeaderBlockFragment(block)

	s.sendHeadersLocal(endStream)
	s.conn.sendFrame(s.id, fr)
}

// Data sends a DATA frame, subject to flow control (§4.3, §6).
func (s *Stream) Data(b []byte, endStream bool) {
	s.conn.enqueueData(s, b, endStream)

	if endStream {
		s.sendEndStreamLocal()
	}
}

// Close sends RST_STREAM(code) and transitions to closed (§6 "close(error?)").
func (s *Stream) Close(code ErrorCode) {
	s.resetLocally(code)
}

// Promise reserves a pushed stream against s as parent and sends
// PUSH_PROMISE with fields as the promised request headers (§4.4 "idle +
// send PUSH_PROMISE → reserved_local").
func (s *Stream) Promise(fields []*HeaderField) *Stream {
	return s.conn.Promise(s, fields)
}
