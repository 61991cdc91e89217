package h2

// pendingData is one buffered DATA write awaiting flow-control credit
// (§4.3 "send buffer").
type pendingData struct {
	stream    *Stream
	data      []byte
	endStream bool
}

// enqueueData appends a DATA write to the connection send buffer (or
// emits it immediately if flow control is disabled) and runs the drain
// loop (§4.3 "Outbound discipline for DATA frames").
func (c *Connection) enqueueData(s *Stream, b []byte, endStream bool) {
	if c.flowControlDisabled {
		c.emitData(s, b, endStream)
		return
	}

	cp := append([]byte(nil), b...)
	c.sendBuffer = append(c.sendBuffer, &pendingData{stream: s, data: cp, endStream: endStream})
	c.bufferedAmount += int64(len(cp))
	s.bufferedAmount += int64(len(cp))

	c.drainSendBuffer()
}

// drainSendBuffer emits as many buffered DATA frames (or frame fragments)
// as current connection/stream credit allows, preserving per-stream order
// (§4.3 step 3).
func (c *Connection) drainSendBuffer() {
	for len(c.sendBuffer) > 0 {
		head := c.sendBuffer[0]

		avail := c.sendWindow
		if head.stream.sendWindow < avail {
			avail = head.stream.sendWindow
		}

		if avail <= 0 {
			return
		}

		if int64(len(head.data)) <= avail {
			c.emitData(head.stream, head.data, head.endStream)
			c.bufferedAmount -= int64(len(head.data))
			head.stream.bufferedAmount -= int64(len(head.data))
			c.sendBuffer = c.sendBuffer[1:]
			continue
		}

		// Split: emit what credit allows, keep the remainder at the head.
		chunk := head.data[:avail]
		c.emitData(head.stream, chunk, false)
		c.bufferedAmount -= avail
		head.stream.bufferedAmount -= avail
		head.data = head.data[avail:]
	}
}

// emitData encodes and sends one DATA frame, decrementing both windows by
// its payload size.
func (c *Connection) emitData(s *Stream, b []byte, endStream bool) {
	fr := acquireData()
	fr.SetEndStream(endStream)
	fr.SetData(b)

	c.sendWindow -= int64(len(b))
	s.sendWindow -= int64(len(b))
	s.fireOnWindow()

	c.sendFrame(s.id, fr)
}

// applyInitialWindowSizeChange adjusts the connection window and every
// existing stream's send window by (new - old), per §4.3 and §8
// invariant 6.
func (c *Connection) applyInitialWindowSizeChange(oldSize, newSize uint32) {
	delta := int64(newSize) - int64(oldSize)
	if delta == 0 {
		return
	}

	c.sendWindow += delta
	c.streams.ForEach(func(s *Stream) {
		s.sendWindow += delta
		s.fireOnWindow()
	})

	c.drainSendBuffer()
}

// disableFlowControl marks flow control off forever (§4.3
// "flow_control_allowed?"). Any further flow-control-related SETTINGS or
// WINDOW_UPDATE after this is a connection FLOW_CONTROL_ERROR.
func (c *Connection) disableFlowControl() {
	c.flowControlDisabled = true
	c.drainSendBuffer()
}

func (c *Connection) flowControlAllowed() bool {
	return !c.flowControlDisabled
}
