package h2

import "testing"

// TestDataSplitOnWindowShortage exercises the send-buffer drain/split path:
// a 12-byte write against a 10-byte window emits a 10-byte DATA frame and
// leaves the remaining 2 bytes buffered (§4.3 step 3).
func TestDataSplitOnWindowShortage(t *testing.T) {
	c, obs := openConnection(RoleServer)

	h := acquireHeaders()
	h.SetHeaderBlockFragment(encodeHeaderBlock(t, c, ":method", "GET"))
	h.SetEndHeaders(true)
	c.Receive(encodeFrame(1, h))
	s := c.Stream(1)

	s.sendWindow = 10
	c.sendWindow = 10

	s.Data([]byte("123456789012"), false)

	if s.BufferedAmount() != 2 {
		t.Fatalf("got buffered_amount=%d, want 2", s.BufferedAmount())
	}
	if c.BufferedAmount() != 2 {
		t.Fatalf("got connection buffered_amount=%d, want 2", c.BufferedAmount())
	}
	if len(obs.frames) != 2 {
		t.Fatalf("got %d frames emitted, want 2 (handshake SETTINGS ack + 10-byte DATA)", len(obs.frames))
	}
	if s.Window() != 0 {
		t.Fatalf("got stream window=%d, want 0", s.Window())
	}
	if c.Window() != 0 {
		t.Fatalf("got connection window=%d, want 0", c.Window())
	}

	// A stream WINDOW_UPDATE alone isn't enough: the connection window is
	// still exhausted.
	wu := acquireWindowUpdate()
	wu.SetIncrement(5)
	if err := c.Receive(encodeFrame(1, wu)); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if s.BufferedAmount() != 2 {
		t.Fatalf("got buffered_amount=%d after stream credit only, want 2", s.BufferedAmount())
	}

	connWU := acquireWindowUpdate()
	connWU.SetIncrement(5)
	if err := c.Receive(encodeFrame(0, connWU)); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if s.BufferedAmount() != 0 {
		t.Fatalf("got buffered_amount=%d, want 0 once both windows have credit", s.BufferedAmount())
	}
	if len(obs.frames) != 3 {
		t.Fatalf("got %d frames emitted, want 3 (handshake SETTINGS ack + initial 10 bytes + trailing 2 bytes)", len(obs.frames))
	}
}

// TestApplyInitialWindowSizeChange covers §8 invariant 6: a SETTINGS
// change to initial_window_size adjusts every existing stream's send
// window by exactly the delta.
func TestApplyInitialWindowSizeChange(t *testing.T) {
	c, obs := openConnection(RoleServer)

	h := acquireHeaders()
	h.SetHeaderBlockFragment(encodeHeaderBlock(t, c, ":method", "GET"))
	h.SetEndHeaders(true)
	c.Receive(encodeFrame(1, h))
	s := c.Stream(1)

	before := s.Window()

	settings := acquireSettingsFrame()
	settings.SetInitialWindowSize(DefaultWindowSize + 1000)
	if err := c.Receive(encodeFrame(0, settings)); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if got := s.Window(); got != before+1000 {
		t.Fatalf("got window=%d, want %d", got, before+1000)
	}
	if len(obs.windows) != 1 || obs.windows[0] != s {
		t.Fatalf("window fired %d times, want 1", len(obs.windows))
	}
}

// TestFlowControlDisabledBypassesBuffer covers the alternate DATA
// discipline when flow control has been turned off for the connection.
func TestFlowControlDisabledBypassesBuffer(t *testing.T) {
	c, obs := openConnection(RoleServer)

	h := acquireHeaders()
	h.SetHeaderBlockFragment(encodeHeaderBlock(t, c, ":method", "GET"))
	h.SetEndHeaders(true)
	c.Receive(encodeFrame(1, h))
	s := c.Stream(1)

	c.disableFlowControl()
	s.sendWindow = 0
	c.sendWindow = 0

	s.Data([]byte("unbounded write"), false)

	if s.BufferedAmount() != 0 {
		t.Fatalf("got buffered_amount=%d, want 0 with flow control disabled", s.BufferedAmount())
	}
	if len(obs.frames) != 2 {
		t.Fatalf("got %d frames, want 2 (handshake SETTINGS ack + DATA emitted immediately)", len(obs.frames))
	}
}

// TestSettingsFlowControlOptionsDisablesFlowControl covers §3's
// flow_control_options key and §4.3's flow_control_allowed? predicate: a
// peer-sent SETTINGS{flow_control_options: 1} disables flow control for
// the rest of the connection, and any further flow-control-related
// SETTINGS or WINDOW_UPDATE after that is a connection FLOW_CONTROL_ERROR.
func TestSettingsFlowControlOptionsDisablesFlowControl(t *testing.T) {
	c, _ := openConnection(RoleServer)

	h := acquireHeaders()
	h.SetHeaderBlockFragment(encodeHeaderBlock(t, c, ":method", "GET"))
	h.SetEndHeaders(true)
	c.Receive(encodeFrame(1, h))
	s := c.Stream(1)
	s.sendWindow = 0
	c.sendWindow = 0

	disable := acquireSettingsFrame()
	disable.SetFlowControlOptions(1)
	if err := c.Receive(encodeFrame(0, disable)); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	s.Data([]byte("unbounded write"), false)
	if s.BufferedAmount() != 0 {
		t.Fatalf("got buffered_amount=%d, want 0 once flow control is disabled by SETTINGS", s.BufferedAmount())
	}

	again := acquireSettingsFrame()
	again.SetFlowControlOptions(0)
	err := c.Receive(encodeFrame(0, again))

	if err == nil {
		t.Fatal("expected a connection error for a flow-control setting sent after disabling")
	}
	e, ok := err.(Error)
	if !ok || !e.IsConnectionError() || e.Code != FlowControlError {
		t.Fatalf("got %v, want connection FLOW_CONTROL_ERROR", err)
	}
}
