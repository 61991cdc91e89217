// Package h2fasthttp adapts the transport-agnostic h2 engine to
// fasthttp.Request/fasthttp.Response, the same translation the teacher's
// serverConn.go/fasthttp.go perform, sitting on top of the pure core
// instead of being fused into it.
package h2fasthttp

import (
	"strconv"

	"github.com/gvsurenderreddy/http-2"
	"github.com/valyala/fasthttp"
)

var (
	strMethod    = []byte(":method")
	strPath      = []byte(":path")
	strScheme    = []byte(":scheme")
	strAuthority = []byte(":authority")
	strStatus    = []byte(":status")
)

func isPseudo(name string) bool {
	return len(name) > 0 && name[0] == ':'
}

// applyRequestHeader folds one decoded HeaderField into req, dispatching
// pseudo-headers (:method, :path, :scheme, :authority) to their fasthttp
// equivalents and everything else to the regular header set.
func applyRequestHeader(hf *h2.HeaderField, req *fasthttp.Request) {
	name, value := hf.Name(), hf.Value()

	if !isPseudo(name) {
		req.Header.Set(name, value)
		return
	}

	switch name {
	case string(strMethod):
		req.Header.SetMethod(value)
	case string(strPath):
		req.SetRequestURI(value)
	case string(strScheme):
		req.URI().SetScheme(value)
	case string(strAuthority):
		req.URI().SetHost(value)
		req.Header.Set("Host", value)
	}
}

// buildResponseHeaders turns a fasthttp.Response into the HeaderField list
// a Stream.Headers call expects, leading with :status per §6.2's
// pseudo-header-first convention.
func buildResponseHeaders(res *fasthttp.Response) []*h2.HeaderField {
	fields := make([]*h2.HeaderField, 0, 8)

	status := h2.AcquireHeaderField()
	status.SetName(string(strStatus))
	status.SetValue(strconv.Itoa(res.StatusCode()))
	fields = append(fields, status)

	contentType := h2.AcquireHeaderField()
	contentType.SetName("content-type")
	contentType.SetValue(string(res.Header.ContentType()))
	fields = append(fields, contentType)

	contentLength := h2.AcquireHeaderField()
	contentLength.SetName("content-length")
	contentLength.SetValue(strconv.Itoa(len(res.Body())))
	fields = append(fields, contentLength)

	res.Header.VisitAll(func(k, v []byte) {
		hf := h2.AcquireHeaderField()
		hf.SetName(string(k))
		hf.SetValue(string(v))
		fields = append(fields, hf)
	})

	return fields
}

func releaseHeaderFields(fields []*h2.HeaderField) {
	for _, hf := range fields {
		h2.ReleaseHeaderField(hf)
	}
}
