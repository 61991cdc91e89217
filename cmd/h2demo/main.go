// Command h2demo is a minimal embedder: it owns a plain TCP listener and
// hands each accepted net.Conn to the h2fasthttp adaptor, demonstrating
// the wiring §6 describes (the engine itself never touches a socket).
//
// TLS/ALPN negotiation is explicitly out of the engine's scope (§1), so
// this demo speaks HTTP/2 via prior knowledge: the client is expected to
// send the connection preface immediately, with no upgrade handshake.
package main

import (
	"flag"
	"log"
	"net"

	"github.com/gvsurenderreddy/http-2/h2fasthttp"
	"github.com/valyala/fasthttp"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	flag.Parse()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("h2demo: listen: %v", err)
	}
	defer ln.Close()

	srv := &h2fasthttp.Server{
		Handler: hello,
	}

	log.Printf("h2demo: listening on %s (prior-knowledge HTTP/2)", *addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("h2demo: accept: %v", err)
			continue
		}

		go func(nc net.Conn) {
			defer nc.Close()
			if err := srv.ServeConn(nc); err != nil {
				log.Printf("h2demo: serve: %v", err)
			}
		}(conn)
	}
}

func hello(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString("hello from h2demo\n")
}
