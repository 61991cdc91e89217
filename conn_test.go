package h2

import (
	"bufio"
	"bytes"
	"testing"
)

// TestHandshakeServer covers S2: a server receives the 24-byte preface
// followed by SETTINGS{max_concurrent_streams: 100}; the connection moves
// new -> connected, stream_limit is recorded, and the only outbound frame
// is the server's own SETTINGS ack.
func TestHandshakeServer(t *testing.T) {
	obs := &testObserver{}
	c := NewConnection(RoleServer, obs)

	if c.State() != ConnNew {
		t.Fatalf("got state %v, want new", c.State())
	}

	settings := acquireSettingsFrame()
	settings.SetMaxConcurrentStreams(100)

	input := append([]byte(nil), Preface...)
	input = append(input, encodeFrame(0, settings)...)

	if err := c.Receive(input); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if c.State() != ConnConnected {
		t.Fatalf("got state %v, want connected", c.State())
	}
	if c.StreamLimit() != 100 {
		t.Fatalf("got stream_limit=%d, want 100", c.StreamLimit())
	}

	if len(obs.frames) != 1 {
		t.Fatalf("got %d outbound frames, want 1 (SETTINGS ack)", len(obs.frames))
	}

	ack, err := ReadFrameFrom(bufio.NewReader(bytes.NewReader(obs.frames[0])))
	if err != nil {
		t.Fatalf("parsing emitted frame: %v", err)
	}
	defer ReleaseFrameHeader(ack)

	if ack.Type() != FrameSettings || !ack.Body().(*Settings).IsAck() {
		t.Fatalf("expected a SETTINGS ack, got type=%v", ack.Type())
	}
}

// TestRequestResponseRoundTrip covers S3: a full HEADERS/DATA exchange in
// both directions, checking event ordering and that active_stream_count
// returns to zero once both sides finish.
func TestRequestResponseRoundTrip(t *testing.T) {
	c, obs := openConnection(RoleServer)

	h := acquireHeaders()
	h.SetHeaderBlockFragment(encodeHeaderBlock(t, c, ":method", "GET"))
	h.SetEndHeaders(true)
	c.Receive(encodeFrame(1, h))

	d := acquireData()
	d.SetData([]byte("request body"))
	d.SetEndStream(true)
	c.Receive(encodeFrame(1, d))

	s := c.Stream(1)
	if s == nil {
		t.Fatal("stream 1 not registered")
	}
	if s.State() != StreamHalfClosedRemote {
		t.Fatalf("got state %v, want half_closed_remote", s.State())
	}
	if c.ActiveStreamCount() != 1 {
		t.Fatalf("got active_stream_count=%d, want 1", c.ActiveStreamCount())
	}

	respFields := AcquireHeaderField()
	respFields.SetName(":status")
	respFields.SetValue("200")
	s.Headers([]*HeaderField{respFields}, false)
	ReleaseHeaderField(respFields)

	s.Data([]byte("response body"), true)

	if s.State() != StreamClosed {
		t.Fatalf("got state %v, want closed", s.State())
	}
	if c.ActiveStreamCount() != 0 {
		t.Fatalf("got active_stream_count=%d, want 0", c.ActiveStreamCount())
	}

	want := []string{"active", "headers", "data", "half_close", "close"}
	if len(obs.order) != len(want) {
		t.Fatalf("got event order %v, want %v", obs.order, want)
	}
	for i := range want {
		if obs.order[i] != want[i] {
			t.Fatalf("got event order %v, want %v", obs.order, want)
		}
	}
}

// TestIllegalPushPromiseOnIdleParent covers S5: a PUSH_PROMISE referencing
// a parent stream id that is still idle is a connection PROTOCOL_ERROR.
func TestIllegalPushPromiseOnIdleParent(t *testing.T) {
	c, _ := openConnection(RoleClient)

	pp := acquirePushPromise()
	pp.SetPromisedStreamID(2)
	pp.SetEndHeaders(true)

	err := c.Receive(encodeFrame(3, pp))

	if err == nil {
		t.Fatal("expected a connection error")
	}
	e, ok := err.(Error)
	if !ok || !e.IsConnectionError() || e.Code != ProtocolError {
		t.Fatalf("got %v, want connection PROTOCOL_ERROR", err)
	}
	if c.State() != ConnClosed {
		t.Fatalf("got state %v, want closed", c.State())
	}
}

// TestRefusedPushPromiseReassemblesBeforeDiscarding covers §9 Open Question
// (a): a PUSH_PROMISE against a parent with closed-cause local_rst is
// refused, but its header block is still fully reassembled across a
// trailing CONTINUATION (keeping the shared HPACK dynamic table in sync)
// before the promised stream is discarded with RST_STREAM(REFUSED_STREAM).
func TestRefusedPushPromiseReassemblesBeforeDiscarding(t *testing.T) {
	c, obs := openConnection(RoleClient)

	parent := c.NewStream()
	parent.Headers(nil, false)
	parent.Close(CancelError)

	if parent.ClosedCause() != CauseLocalReset {
		t.Fatalf("got closed cause %v, want local_rst", parent.ClosedCause())
	}

	block := encodeHeaderBlock(t, c, ":path", "/style.css")

	pp := acquirePushPromise()
	pp.SetPromisedStreamID(2)
	pp.SetEndHeaders(false)
	pp.SetHeaderBlockFragment(block)
	if err := c.Receive(encodeFrame(parent.ID(), pp)); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	promised := c.Stream(2)
	if promised == nil {
		t.Fatal("promised stream should still be registered while its header block is reassembled")
	}
	if !promised.refusedPush {
		t.Fatal("expected the promised stream to be marked refused")
	}
	if len(obs.promises) != 0 {
		t.Fatal("a refused promise must not fire OnPromise")
	}

	cont := acquireContinuation()
	cont.SetEndHeaders(true)
	if err := c.Receive(encodeFrame(2, cont)); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if c.Stream(2) != nil {
		t.Fatal("the refused promised stream should be dropped from the registry once reassembled")
	}
	if len(obs.promises) != 0 {
		t.Fatal("a refused promise must never fire OnPromise")
	}
	if len(obs.headers) != 0 {
		t.Fatal("a refused promise must never fire OnHeaders")
	}

	last, err := ReadFrameFrom(bufio.NewReader(bytes.NewReader(obs.frames[len(obs.frames)-1])))
	if err != nil {
		t.Fatalf("parsing emitted frame: %v", err)
	}
	defer ReleaseFrameHeader(last)

	if last.Type() != FrameResetStream || last.Stream() != 2 {
		t.Fatalf("got last emitted frame type=%v stream=%d, want RST_STREAM on stream 2", last.Type(), last.Stream())
	}
	if last.Body().(*RstStream).Code() != RefusedStreamError {
		t.Fatalf("got RST_STREAM code=%v, want REFUSED_STREAM", last.Body().(*RstStream).Code())
	}
}

// TestStreamLimitRefusesOverflow covers §3's active-stream-count ≤
// stream-limit invariant: once the negotiated SETTINGS_MAX_CONCURRENT_STREAMS
// is reached, a further peer-initiated stream is refused with
// RST_STREAM(REFUSED_STREAM) rather than being registered.
func TestStreamLimitRefusesOverflow(t *testing.T) {
	c, obs := openConnection(RoleServer)
	c.streamLimit = 1

	h1 := acquireHeaders()
	h1.SetHeaderBlockFragment(encodeHeaderBlock(t, c, ":method", "GET"))
	h1.SetEndHeaders(true)
	if err := c.Receive(encodeFrame(1, h1)); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if c.ActiveStreamCount() != 1 {
		t.Fatalf("got active_stream_count=%d, want 1", c.ActiveStreamCount())
	}

	overflow := acquireHeaders()
	overflow.SetHeaderBlockFragment(encodeHeaderBlock(t, c, ":method", "GET"))
	overflow.SetEndHeaders(true)
	if err := c.Receive(encodeFrame(3, overflow)); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if c.Stream(3) != nil {
		t.Fatal("stream over the concurrency limit must not be registered")
	}
	if c.ActiveStreamCount() != 1 {
		t.Fatalf("got active_stream_count=%d, want 1 (unchanged)", c.ActiveStreamCount())
	}

	last, err := ReadFrameFrom(bufio.NewReader(bytes.NewReader(obs.frames[len(obs.frames)-1])))
	if err != nil {
		t.Fatalf("parsing emitted frame: %v", err)
	}
	defer ReleaseFrameHeader(last)

	if last.Type() != FrameResetStream || last.Stream() != 3 {
		t.Fatalf("got last emitted frame type=%v stream=%d, want RST_STREAM on stream 3", last.Type(), last.Stream())
	}
	if last.Body().(*RstStream).Code() != RefusedStreamError {
		t.Fatalf("got RST_STREAM code=%v, want REFUSED_STREAM", last.Body().(*RstStream).Code())
	}
}

// TestInterleavedFrameDuringHeaderBlock covers S6: a HEADERS with
// end_headers=false followed by DATA (instead of CONTINUATION) on the same
// stream is a connection PROTOCOL_ERROR.
func TestInterleavedFrameDuringHeaderBlock(t *testing.T) {
	c, _ := openConnection(RoleServer)

	h := acquireHeaders()
	h.SetHeaderBlockFragment([]byte{0x82})
	h.SetEndHeaders(false)
	if err := c.Receive(encodeFrame(1, h)); err != nil {
		t.Fatalf("unexpected error on the opening HEADERS: %v", err)
	}

	d := acquireData()
	d.SetData([]byte("oops"))
	err := c.Receive(encodeFrame(1, d))

	if err == nil {
		t.Fatal("expected a connection error")
	}
	e, ok := err.(Error)
	if !ok || !e.IsConnectionError() || e.Code != ProtocolError {
		t.Fatalf("got %v, want connection PROTOCOL_ERROR", err)
	}
	if c.State() != ConnClosed {
		t.Fatalf("got state %v, want closed", c.State())
	}
}
