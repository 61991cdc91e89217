package h2fasthttp

import (
	"testing"

	"github.com/gvsurenderreddy/http-2"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestApplyRequestHeaderPseudoHeaders(t *testing.T) {
	var req fasthttp.Request

	set := func(name, value string) {
		hf := h2.AcquireHeaderField()
		hf.SetName(name)
		hf.SetValue(value)
		applyRequestHeader(hf, &req)
		h2.ReleaseHeaderField(hf)
	}

	set(":method", "POST")
	set(":path", "/widgets")
	set(":scheme", "https")
	set(":authority", "example.com")
	set("x-request-id", "abc123")

	assert.Equal(t, "POST", string(req.Header.Method()))
	assert.Equal(t, "/widgets", string(req.URI().Path()))
	assert.Equal(t, "https", string(req.URI().Scheme()))
	assert.Equal(t, "example.com", string(req.URI().Host()))
	assert.Equal(t, "abc123", string(req.Header.Peek("x-request-id")))
}

func TestBuildResponseHeadersLeadsWithStatus(t *testing.T) {
	var res fasthttp.Response
	res.SetStatusCode(204)
	res.Header.SetContentType("text/plain")
	res.Header.Set("x-cache", "hit")

	fields := buildResponseHeaders(&res)
	defer releaseHeaderFields(fields)

	if assert.NotEmpty(t, fields) {
		assert.Equal(t, ":status", fields[0].Name())
		assert.Equal(t, "204", fields[0].Value())
	}

	var sawCache bool
	for _, hf := range fields {
		if hf.Name() == "x-cache" {
			sawCache = true
			assert.Equal(t, "hit", hf.Value())
		}
	}
	assert.True(t, sawCache, "expected x-cache to be carried through VisitAll")
}
