//go:build debug
// +build debug

package debug

import (
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
)

const Enabled = true

var logger = log.New(os.Stderr, "|sgml| ", 0)

// Printf prints trace messages. Only available if compiled with the "debug" tag
func Printf(f string, args ...interface{}) {
	logger.Printf(f, args...)
}

// Dump pretty-prints the given values via go-spew
func Dump(v ...interface{}) {
	spew.Dump(v...)
}
