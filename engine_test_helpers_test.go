package h2

import (
	"bufio"
	"bytes"
)

// encodeFrame serializes body under a FrameHeader addressed to stream,
// returning the raw wire bytes — used to build synthetic peer input for
// Connection.Receive in tests.
func encodeFrame(stream uint32, body Frame) []byte {
	frh := AcquireFrameHeader()
	frh.SetStream(stream)
	frh.SetBody(body)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	frh.WriteTo(bw)
	bw.Flush()

	ReleaseFrameHeader(frh)

	return buf.Bytes()
}

type recordedGoAway struct {
	lastStreamID uint32
	code         ErrorCode
	debugData    []byte
}

type recordedHeaders struct {
	stream    *Stream
	fields    []*HeaderField
	endStream bool
}

type recordedData struct {
	stream    *Stream
	data      []byte
	endStream bool
}

// testObserver is a recording ConnectionObserver/StreamObserver used
// throughout the test suite to assert on emitted bytes and fired events
// without needing a real transport.
type testObserver struct {
	frames [][]byte

	newStreams []*Stream
	promises   []*Stream
	goaways    []recordedGoAway
	pingAcks   [][]byte

	active     []*Stream
	halfClosed []*Stream
	closed     []*Stream
	priorities []*Stream
	windows    []*Stream

	headers []recordedHeaders
	data    []recordedData

	// order records the sequence of semantic stream events, for
	// asserting the active -> headers -> half_close -> close ordering.
	order []string
}

func (o *testObserver) OnFrame(b []byte) {
	cp := append([]byte(nil), b...)
	o.frames = append(o.frames, cp)
}

func (o *testObserver) OnFrameSent(fr *FrameHeader)     {}
func (o *testObserver) OnFrameReceived(fr *FrameHeader) {}

func (o *testObserver) OnStream(s *Stream) { o.newStreams = append(o.newStreams, s) }
func (o *testObserver) OnPromise(s *Stream) { o.promises = append(o.promises, s) }

func (o *testObserver) OnGoAway(lastStreamID uint32, code ErrorCode, debugData []byte) {
	o.goaways = append(o.goaways, recordedGoAway{lastStreamID, code, debugData})
}

func (o *testObserver) OnPingAck(payload []byte) {
	o.pingAcks = append(o.pingAcks, append([]byte(nil), payload...))
}

func (o *testObserver) OnActive(s *Stream) {
	o.active = append(o.active, s)
	o.order = append(o.order, "active")
}

func (o *testObserver) OnHalfClose(s *Stream) {
	o.halfClosed = append(o.halfClosed, s)
	o.order = append(o.order, "half_close")
}

func (o *testObserver) OnClose(s *Stream) {
	o.closed = append(o.closed, s)
	o.order = append(o.order, "close")
}

func (o *testObserver) OnPriority(s *Stream) { o.priorities = append(o.priorities, s) }
func (o *testObserver) OnWindow(s *Stream)   { o.windows = append(o.windows, s) }

func (o *testObserver) OnHeaders(s *Stream, fields []*HeaderField, endStream bool) {
	o.headers = append(o.headers, recordedHeaders{s, fields, endStream})
	o.order = append(o.order, "headers")
}

func (o *testObserver) OnData(s *Stream, data []byte, endStream bool) {
	cp := append([]byte(nil), data...)
	o.data = append(o.data, recordedData{s, cp, endStream})
	o.order = append(o.order, "data")
}

// openConnection builds a Connection in role already past the handshake
// (preface consumed for a server, SETTINGS exchanged either way), ready to
// receive stream frames.
func openConnection(role Role) (*Connection, *testObserver) {
	obs := &testObserver{}
	c := NewConnection(role, obs)

	settings := acquireSettingsFrame()
	settings.SetMaxConcurrentStreams(100)

	var input []byte
	if role == RoleServer {
		input = append(input, Preface...)
	}
	input = append(input, encodeFrame(0, settings)...)
	c.Receive(input)

	return c, obs
}
