package h2

import (
	"bufio"
	"bytes"
)

// Role distinguishes which endpoint of the connection this engine models
// (§3 "role ∈ {client, server}").
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

// ConnState is a node in the connection lifecycle (§4.5).
type ConnState uint8

const (
	ConnNew ConnState = iota
	ConnConnected
	ConnClosed
)

// ConnectionObserver receives every event a Connection and its Streams
// emit (§6 "Event surface"). Embed StreamObserver so one type can answer
// both surfaces, as most embedders want.
type ConnectionObserver interface {
	StreamObserver

	// OnFrame is the opaque encoded bytes the embedder must write to the
	// transport.
	OnFrame(b []byte)

	// OnFrameSent/OnFrameReceived are structured hooks for logging.
	OnFrameSent(frh *FrameHeader)
	OnFrameReceived(frh *FrameHeader)

	// OnStream fires when the peer opens a new stream (server role).
	OnStream(s *Stream)

	// OnPromise fires when the peer promises a pushed stream (client role).
	OnPromise(s *Stream)

	OnGoAway(lastStreamID uint32, code ErrorCode, debugData []byte)
	OnPingAck(payload []byte)
}

// Connection is the per-connection engine: receive bytes in, frame events
// and outbound bytes out, with no I/O of its own (§1, §4.5).
//
// A Connection MUST NOT be used from more than one goroutine at a time;
// the embedder is responsible for serializing calls (§5).
type Connection struct {
	role  Role
	state ConnState

	nextStreamID      uint32
	highestPeerStream uint32
	streamLimit       uint32 // 0 means unlimited
	activeStreamCount int

	streams streamRegistry

	sendWindow           int64
	recvWindow           int64
	peerInitialWindowSize uint32
	ownInitialWindowSize  uint32
	flowControlDisabled  bool

	sendBuffer     []*pendingData
	bufferedAmount int64

	maxFrameLen uint32

	inbuf         []byte
	prefaceSeen   bool

	draining        bool
	closeRef        uint32 // peer's GOAWAY last-stream-id, for drain policy
	lastError       error

	observer   ConnectionObserver
	compressor HeaderCompressor
}

// NewConnection constructs a Connection for the given role. A client
// connection immediately emits the connection preface (§6).
func NewConnection(role Role, observer ConnectionObserver) *Connection {
	c := &Connection{
		role:                  role,
		state:                 ConnNew,
		peerInitialWindowSize: DefaultWindowSize,
		ownInitialWindowSize:  DefaultWindowSize,
		sendWindow:            DefaultWindowSize,
		recvWindow:            DefaultWindowSize,
		maxFrameLen:           DefaultMaxFrameLen,
		observer:              observer,
		compressor:            NewHeaderCompressor(),
	}

	if role == RoleClient {
		c.nextStreamID = 1
		c.prefaceSeen = true // clients don't receive their own preface
		if observer != nil {
			observer.OnFrame(Preface)
		}
	} else {
		c.nextStreamID = 2
	}

	return c
}

func (c *Connection) peerInitialWindow() uint32 { return c.peerInitialWindowSize }
func (c *Connection) ownInitialWindow() uint32  { return c.ownInitialWindowSize }

// State returns the connection's lifecycle state.
func (c *Connection) State() ConnState { return c.state }

// Window returns the connection's current send credit.
func (c *Connection) Window() int64 { return c.sendWindow }

// BufferedAmount returns the bytes still queued across all streams in the
// connection send buffer.
func (c *Connection) BufferedAmount() int64 { return c.bufferedAmount }

// ActiveStreamCount returns the number of streams in open,
// half_closed_local or half_closed_remote (§3, §8 invariant 4).
func (c *Connection) ActiveStreamCount() int { return c.activeStreamCount }

// StreamLimit returns the negotiated SETTINGS_MAX_CONCURRENT_STREAMS, or 0
// for unlimited.
func (c *Connection) StreamLimit() uint32 { return c.streamLimit }

// Error returns the error that closed the connection, if any.
func (c *Connection) Error() error { return c.lastError }

// CloseRef returns the peer's GOAWAY last-stream-id, so an embedder can let
// in-flight streams at or below this id finish before tearing down the
// transport (§9 Open Question c).
func (c *Connection) CloseRef() uint32 { return c.closeRef }

// isServerParity reports whether id belongs to the server-initiated
// (even) id space.
func isServerParity(id uint32) bool { return id%2 == 0 }

func (c *Connection) isPeerInitiated(id uint32) bool {
	if c.role == RoleServer {
		return !isServerParity(id) // peer is the client: odd ids
	}
	return isServerParity(id)
}

// NewStream allocates an outbound stream id and registers a new idle
// Stream (§6 "new_stream(priority?)").
func (c *Connection) NewStream() *Stream {
	id := c.nextStreamID
	c.nextStreamID += 2

	s := newStream(c, id)
	c.streams.Insert(s)
	return s
}

// Stream looks up a registered stream by id.
func (c *Connection) Stream(id uint32) *Stream { return c.streams.Get(id) }

// Receive appends b to the inbound buffer and parses as many complete
// frames as are available, dispatching each in wire order (§4.5, §5
// "Inbound frames are processed strictly in wire order").
func (c *Connection) Receive(b []byte) error {
	if c.state == ConnClosed {
		return nil
	}

	c.inbuf = append(c.inbuf, b...)

	for {
		if c.role == RoleServer && !c.prefaceSeen {
			if len(c.inbuf) < len(Preface) {
				return nil
			}
			if !bytes.Equal(c.inbuf[:len(Preface)], Preface) {
				return c.fail(NewGoAwayError(ProtocolError, "bad connection preface"))
			}
			c.inbuf = c.inbuf[len(Preface):]
			c.prefaceSeen = true
		}

		if len(c.inbuf) < DefaultFrameSize {
			return nil
		}

		peek := bufio.NewReader(bytes.NewReader(c.inbuf))
		header, err := peek.Peek(DefaultFrameSize)
		if err != nil {
			return nil
		}

		length := int(header[0])<<16 | int(header[1])<<8 | int(header[2])
		total := DefaultFrameSize + length

		if len(c.inbuf) < total {
			return nil
		}

		frh, err := ReadFrameFromWithSize(bufio.NewReader(bytes.NewReader(c.inbuf[:total])), c.maxFrameLen)
		c.inbuf = c.inbuf[total:]

		if err != nil {
			return c.fail(err)
		}

		if c.observer != nil {
			c.observer.OnFrameReceived(frh)
		}

		derr := c.dispatch(frh)
		ReleaseFrameHeader(frh)

		if derr != nil {
			return c.fail(derr)
		}
	}
}

func (c *Connection) dispatch(frh *FrameHeader) error {
	if frh.Type() == FrameSettings || frh.Stream() == 0 {
		return c.connectionManagement(frh)
	}
	if c.state == ConnNew {
		return NewGoAwayError(ProtocolError, "connection must open with SETTINGS")
	}
	return c.streamDispatch(frh)
}

func (c *Connection) connectionManagement(frh *FrameHeader) error {
	switch c.state {
	case ConnNew:
		if frh.Type() != FrameSettings {
			return NewGoAwayError(ProtocolError, "connection must open with SETTINGS")
		}
		if err := c.applySettings(frh.Body().(*Settings)); err != nil {
			return err
		}
		c.state = ConnConnected
		return nil

	case ConnConnected:
		switch frh.Type() {
		case FrameSettings:
			return c.applySettings(frh.Body().(*Settings))
		case FrameWindowUpdate:
			return c.recvConnWindowUpdate(frh.Body().(*WindowUpdate))
		case FramePing:
			return c.recvPing(frh.Body().(*Ping))
		case FrameGoAway:
			return c.recvGoAway(frh.Body().(*GoAway))
		default:
			return NewGoAwayError(ProtocolError, "unexpected frame type on stream 0")
		}

	default: // ConnClosed
		return nil
	}
}

func (c *Connection) applySettings(s *Settings) error {
	if s.IsAck() {
		return nil
	}

	if v, ok := s.MaxConcurrentStreams(); ok {
		c.streamLimit = v
	}

	if _, ok := s.FlowControlOptions(); ok && c.flowControlDisabled {
		return NewGoAwayError(FlowControlError, "flow_control_options sent after flow control disabled")
	}

	oldWindow := c.peerInitialWindowSize
	newWindow := s.InitialWindowSize()
	if newWindow != oldWindow {
		if c.flowControlDisabled {
			return NewGoAwayError(FlowControlError, "initial window size changed after flow control disabled")
		}
		c.peerInitialWindowSize = newWindow
		c.applyInitialWindowSizeChange(oldWindow, newWindow)
	}

	if v, ok := s.FlowControlOptions(); ok && v == 1 {
		c.disableFlowControl()
	}

	c.compressor.SetMaxDynamicTableSize(s.HeaderTableSize())

	if mf := s.MaxFrameSize(); mf != 0 {
		c.maxFrameLen = mf
	}

	ack := acquireSettingsFrame()
	ack.SetAck(true)
	c.sendFrame(0, ack)

	return nil
}

func (c *Connection) recvConnWindowUpdate(wu *WindowUpdate) error {
	if wu.Increment() == 0 {
		return NewGoAwayError(ProtocolError, "zero-length WINDOW_UPDATE increment on connection")
	}
	if c.flowControlDisabled {
		return NewGoAwayError(FlowControlError, "WINDOW_UPDATE after flow control disabled")
	}

	c.sendWindow += int64(wu.Increment())
	c.drainSendBuffer()

	return nil
}

func (c *Connection) recvPing(p *Ping) error {
	if p.IsAck() {
		if c.observer != nil {
			c.observer.OnPingAck(p.Data())
		}
		return nil
	}

	reply := acquirePing()
	reply.SetAck(true)
	reply.SetData(p.Data())
	c.sendFrame(0, reply)

	return nil
}

func (c *Connection) recvGoAway(g *GoAway) error {
	c.closeRef = g.LastStreamID()
	c.draining = true

	if c.observer != nil {
		c.observer.OnGoAway(g.LastStreamID(), g.Code(), g.DebugData())
	}

	return nil
}

func (c *Connection) streamDispatch(frh *FrameHeader) error {
	id := frh.Stream()
	s := c.streams.Get(id)

	if frh.Type() == FramePushPromise {
		parent := s
		if parent == nil {
			return NewGoAwayError(ProtocolError, "PUSH_PROMISE on unknown parent stream")
		}
		return c.recvPushPromise(parent, frh.Body().(*PushPromise))
	}

	if s == nil {
		if !c.isPeerInitiated(id) {
			return NewGoAwayError(ProtocolError, "frame for unknown stream of wrong initiator parity")
		}
		if c.highestPeerStream != 0 && id <= c.highestPeerStream {
			return NewGoAwayError(ProtocolError, "stream id is not strictly increasing")
		}

		if c.streamLimit != 0 && c.activeStreamCount >= int(c.streamLimit) {
			fr := acquireRstStream()
			fr.SetCode(RefusedStreamError)
			c.sendFrame(id, fr)
			return nil
		}

		s = newStream(c, id)
		c.streams.Insert(s)
		c.closeIdlePeerStreamsBelow(id)
		if id > c.highestPeerStream {
			c.highestPeerStream = id
		}
		if c.observer != nil {
			c.observer.OnStream(s)
		}
	}

	err := s.handleReceivedFrame(frh.Body())
	if err != nil {
		if e, ok := err.(Error); ok && !e.IsConnectionError() {
			return c.resetStream(s, e)
		}
		return err
	}

	if s.state == StreamClosed {
		c.streams.Del(s.id)
	}

	return nil
}

// closeIdlePeerStreamsBelow implicitly closes any still-idle peer-initiated
// stream with an id below newID, per RFC 7540 §5.1.1: opening a
// higher-numbered stream closes all lower-numbered idle streams of the same
// initiator.
func (c *Connection) closeIdlePeerStreamsBelow(newID uint32) {
	var idle []*Stream
	c.streams.ForEach(func(s *Stream) {
		if s.id < newID && s.state == StreamIdle && c.isPeerInitiated(s.id) {
			idle = append(idle, s)
		}
	})

	for _, s := range idle {
		s.transitionTo(StreamClosed, CauseRemoteFin)
		c.streams.Del(s.id)
	}
}

func (c *Connection) resetStream(s *Stream, e Error) error {
	fr := acquireRstStream()
	fr.SetCode(e.Code)
	c.sendFrame(s.id, fr)

	s.transitionTo(StreamClosed, CauseLocalReset)
	c.streams.Del(s.id)

	return nil
}

// recvPushPromise validates and activates a pushed stream (§4.5
// "PUSH_PROMISE handling"). A parent with closed-cause local_rst still
// reassembles the full promised header block before being refused, rather
// than being rejected by the open/half_closed_local guard below — that
// guard is only for a parent in some other, genuinely invalid state.
func (c *Connection) recvPushPromise(parent *Stream, pp *PushPromise) error {
	refused := parent.closedCause == CauseLocalReset

	if !refused && parent.state != StreamOpen && parent.state != StreamHalfClosedLocal {
		return NewGoAwayError(ProtocolError, "PUSH_PROMISE parent not open or half_closed_local")
	}

	promisedID := pp.PromisedStreamID()

	if !isServerParity(promisedID) {
		return NewGoAwayError(ProtocolError, "promised stream id has wrong parity")
	}
	if existing := c.streams.Get(promisedID); existing != nil {
		return NewGoAwayError(ProtocolError, "promised stream id already in use")
	}

	promised := newStream(c, promisedID)
	promised.state = StreamReservedRemote
	promised.refusedPush = refused
	c.streams.Insert(promised)
	if promisedID > c.highestPeerStream {
		c.highestPeerStream = promisedID
	}

	endHeaders := pp.EndHeaders()
	promised.reassembling = !endHeaders
	promised.promisePending = !endHeaders
	promised.headerBlock = append(promised.headerBlock[:0], pp.HeaderBlockFragment()...)

	if !endHeaders {
		return nil
	}
	return c.finishPromisedHeaders(promised)
}

// finishPromisedHeaders completes a pushed stream's request header-block
// reassembly, whether it finished in the initial PUSH_PROMISE frame or
// only after trailing CONTINUATION frames. The block is always decoded, so
// a refused promise still keeps the peer's HPACK dynamic table in sync
// before being discarded with a per-stream RST_STREAM(REFUSED_STREAM)
// (§9 Open Question a), instead of ever reaching the embedder.
func (c *Connection) finishPromisedHeaders(promised *Stream) error {
	promised.promisePending = false

	fields, err := c.compressor.Decode(nil, promised.headerBlock)
	if err != nil {
		return err
	}

	if promised.refusedPush {
		fr := acquireRstStream()
		fr.SetCode(RefusedStreamError)
		c.sendFrame(promised.id, fr)
		c.streams.Del(promised.id)
		return nil
	}

	if c.observer != nil {
		c.observer.OnPromise(promised)
		c.observer.OnHeaders(promised, fields, false)
	}

	return nil
}

// Promise reserves a new stream of our own initiator parity and sends
// PUSH_PROMISE on parent, advertising it to the peer before any response
// traffic (§4.4 "idle + send PUSH_PROMISE → reserved_local").
func (c *Connection) Promise(parent *Stream, fields []*HeaderField) *Stream {
	id := c.nextStreamID
	c.nextStreamID += 2

	promised := newStream(c, id)
	promised.state = StreamReservedLocal
	c.streams.Insert(promised)

	block := c.compressor.Encode(nil, fields)

	pp := acquirePushPromise()
	pp.SetPromisedStreamID(id)
	pp.SetEndHeaders(true)
	pp.SetHeaderBlockFragment(block)
	c.sendFrame(parent.id, pp)

	return promised
}

// sendFrame encodes body under a FrameHeader addressed to stream and
// emits the bytes to the embedder (§6 "frame" event).
func (c *Connection) sendFrame(stream uint32, body Frame) {
	if c.state == ConnClosed {
		ReleaseFrame(body)
		return
	}

	frh := AcquireFrameHeader()
	frh.SetStream(stream)
	frh.SetMaxLen(c.maxFrameLen)
	frh.SetBody(body)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	frh.WriteTo(bw)
	bw.Flush()

	if c.observer != nil {
		c.observer.OnFrameSent(frh)
	}

	ReleaseFrameHeader(frh)

	if c.observer != nil {
		c.observer.OnFrame(buf.Bytes())
	}
}

// Ping sends a PING with the given 8-byte payload (§6).
func (c *Connection) Ping(payload []byte) {
	p := acquirePing()
	p.SetData(payload)
	c.sendFrame(0, p)
}

// Settings sends a SETTINGS frame built from the given key/value updates
// (§6 "settings(map)").
func (c *Connection) Settings(values map[SettingID]uint32) {
	s := acquireSettingsFrame()
	for id, v := range values {
		s.set(id, v)
	}
	c.sendFrame(0, s)
}

// WindowUpdate sends a connection-level WINDOW_UPDATE and grows our
// receive window by n (§6).
func (c *Connection) WindowUpdate(n uint32) {
	c.recvWindow += int64(n)

	wu := acquireWindowUpdate()
	wu.SetIncrement(n)
	c.sendFrame(0, wu)
}

// GoAway sends a terminal GOAWAY and marks the connection closed (§6,
// §4.5 "Connection error").
func (c *Connection) GoAway(code ErrorCode, debug []byte) {
	g := acquireGoAway()
	g.SetLastStreamID(c.highestPeerStream)
	g.SetCode(code)
	g.SetDebugData(debug)
	c.sendFrame(0, g)

	c.state = ConnClosed
}

// fail transitions the connection to closed, emits a terminal RST_STREAM
// on stream 0, and returns the typed failure for the embedder to tear
// down the transport (§4.5 "Connection error", §7).
func (c *Connection) fail(err error) error {
	if c.state == ConnClosed {
		return err
	}

	code := ProtocolError
	if e, ok := err.(Error); ok {
		code = e.Code
	}

	c.lastError = err
	c.state = ConnClosed

	term := acquireRstStream()
	term.SetCode(code)
	c.sendFrame(0, term)

	return err
}
