package sgml

import (
	_ "embed"
	"sync"
)

//go:embed html.dtd
var htmlDTDText string

var (
	htmlDTDOnce sync.Once
	htmlDTD     *DTD
	htmlDTDErr  error
)

// HTMLDTD returns the built-in HTML DTD, parsed once per process. The
// result is immutable and shared by every reader in HTML mode.
func HTMLDTD() (*DTD, error) {
	htmlDTDOnce.Do(func() {
		htmlDTD, htmlDTDErr = ParseDTDString("HTML", htmlDTDText)
	})
	return htmlDTD, htmlDTDErr
}
