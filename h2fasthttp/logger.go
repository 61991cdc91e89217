package h2fasthttp

import (
	"log"
	"os"
)

// Logger is shaped exactly like fasthttp.Logger, so an embedder already
// holding one can pass it straight through instead of wiring a second
// logging dependency.
type Logger interface {
	Printf(format string, args ...interface{})
}

var defaultLogger Logger = log.New(os.Stdout, "h2fasthttp: ", log.LstdFlags)
