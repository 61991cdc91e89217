package h2fasthttp

import (
	"net"

	"github.com/gvsurenderreddy/http-2"
	"github.com/valyala/fasthttp"
)

// RequestHandler processes one fully-received request, mirroring
// fasthttp.RequestHandler so embedders already writing fasthttp handlers
// reuse them unchanged.
type RequestHandler func(ctx *fasthttp.RequestCtx)

// Server drives one h2.Connection per accepted net.Conn, translating
// Stream headers/data events into fasthttp.Request/fasthttp.Response, the
// way the teacher's serverConn.go/fasthttp.go do for their fused
// transport+engine design.
type Server struct {
	Handler RequestHandler
	Logger  Logger
}

func (s *Server) logger() Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return defaultLogger
}

// ServeConn runs the HTTP/2 server engine over nc until nc is closed or a
// connection error occurs. nc is assumed to already be past ALPN
// negotiation (§1: ALPN is explicitly out of the engine's scope).
func (s *Server) ServeConn(nc net.Conn) error {
	sc := &serverConn{
		nc:      nc,
		handler: s.Handler,
		logger:  s.logger(),
		streams: make(map[uint32]*requestState),
	}

	sc.conn = h2.NewConnection(h2.RoleServer, sc)

	buf := make([]byte, 4096)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			if rerr := sc.conn.Receive(buf[:n]); rerr != nil {
				sc.flush()
				return rerr
			}
			if werr := sc.flush(); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
		if sc.conn.State() == h2.ConnClosed {
			return sc.flush()
		}
	}
}

// requestState accumulates one in-flight request's body and headers until
// the stream half-closes (§4.4 "half_close").
type requestState struct {
	req *fasthttp.Request
}

// serverConn implements h2.ConnectionObserver, bridging engine events onto
// net.Conn writes and fasthttp request/response values.
type serverConn struct {
	nc      net.Conn
	conn    *h2.Connection
	handler RequestHandler
	logger  Logger

	out     []byte
	streams map[uint32]*requestState
}

func (sc *serverConn) flush() error {
	if len(sc.out) == 0 {
		return nil
	}
	_, err := sc.nc.Write(sc.out)
	sc.out = sc.out[:0]
	return err
}

func (sc *serverConn) OnFrame(b []byte) { sc.out = append(sc.out, b...) }

func (sc *serverConn) OnFrameSent(fr *h2.FrameHeader) {}

func (sc *serverConn) OnFrameReceived(fr *h2.FrameHeader) {}

func (sc *serverConn) OnStream(stream *h2.Stream) {
	sc.streams[stream.ID()] = &requestState{req: &fasthttp.Request{}}
}

func (sc *serverConn) OnPromise(stream *h2.Stream) {}

func (sc *serverConn) OnGoAway(lastStreamID uint32, code h2.ErrorCode, debugData []byte) {
	sc.logger().Printf("h2fasthttp: peer sent GOAWAY last=%d code=%s", lastStreamID, code)
}

func (sc *serverConn) OnPingAck(payload []byte) {}

func (sc *serverConn) OnActive(stream *h2.Stream) {
	if _, ok := sc.streams[stream.ID()]; !ok {
		sc.streams[stream.ID()] = &requestState{req: &fasthttp.Request{}}
	}
}

func (sc *serverConn) OnHeaders(stream *h2.Stream, fields []*h2.HeaderField, endStream bool) {
	st := sc.streams[stream.ID()]
	if st == nil {
		return
	}
	for _, hf := range fields {
		applyRequestHeader(hf, st.req)
	}
	releaseHeaderFields(fields)
}

func (sc *serverConn) OnData(stream *h2.Stream, data []byte, endStream bool) {
	st := sc.streams[stream.ID()]
	if st == nil {
		return
	}
	st.req.AppendBody(data)
}

func (sc *serverConn) OnHalfClose(stream *h2.Stream) {
	st := sc.streams[stream.ID()]
	if st == nil || stream.State() != h2.StreamHalfClosedRemote {
		return
	}

	ctx := &fasthttp.RequestCtx{}
	st.req.CopyTo(&ctx.Request)

	if sc.handler != nil {
		sc.handler(ctx)
	}

	fields := buildResponseHeaders(&ctx.Response)
	stream.Headers(fields, false)
	stream.Data(ctx.Response.Body(), true)
}

func (sc *serverConn) OnClose(stream *h2.Stream) {
	delete(sc.streams, stream.ID())
}

func (sc *serverConn) OnPriority(stream *h2.Stream) {}

func (sc *serverConn) OnWindow(stream *h2.Stream) {}
