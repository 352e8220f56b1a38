package sgml

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// ReaderOption configures a Reader before its first Read.
type ReaderOption interface {
	Option
	readerOption()
}

type readerOption struct {
	Option
}

func (*readerOption) readerOption() {}

func newReaderOption(n, v interface{}) ReaderOption {
	return &readerOption{option.New(n, v)}
}

type identDocType struct{}
type identPublicID struct{}
type identSystemLiteral struct{}
type identInternalSubset struct{}
type identBaseURI struct{}
type identHref struct{}
type identInput struct{}
type identProxy struct{}
type identCaseFolding struct{}
type identWhitespace struct{}
type identStripDocType struct{}
type identIgnoreDTD struct{}
type identDTD struct{}
type identErrorLog struct{}

// WithDocType declares the root element; "HTML" switches on HTML mode
// and the built-in HTML DTD.
func WithDocType(v string) ReaderOption {
	return newReaderOption(identDocType{}, v)
}

// WithPublicID sets the DOCTYPE public identifier.
func WithPublicID(v string) ReaderOption {
	return newReaderOption(identPublicID{}, v)
}

// WithSystemLiteral sets the DOCTYPE system identifier, used to locate
// an external DTD.
func WithSystemLiteral(v string) ReaderOption {
	return newReaderOption(identSystemLiteral{}, v)
}

// WithInternalSubset supplies DOCTYPE internal subset text.
func WithInternalSubset(v string) ReaderOption {
	return newReaderOption(identInternalSubset{}, v)
}

// WithBaseURI sets the resolution root for DTD and entity lookups.
func WithBaseURI(v string) ReaderOption {
	return newReaderOption(identBaseURI{}, v)
}

// WithHref names the document to read, a file path or http(s) URL.
// Mutually exclusive with an input stream.
func WithHref(v string) ReaderOption {
	return newReaderOption(identHref{}, v)
}

// WithInput supplies the document as a stream. Mutually exclusive with
// WithHref.
func WithInput(v io.Reader) ReaderOption {
	return newReaderOption(identInput{}, v)
}

// WithProxy routes HTTP fetches through a proxy URL.
func WithProxy(v string) ReaderOption {
	return newReaderOption(identProxy{}, v)
}

// WithCaseFolding normalizes scanned names.
func WithCaseFolding(v CaseFolding) ReaderOption {
	return newReaderOption(identCaseFolding{}, v)
}

// WithWhitespaceHandling controls whitespace-only text events.
func WithWhitespaceHandling(v WhitespaceHandling) ReaderOption {
	return newReaderOption(identWhitespace{}, v)
}

// WithStripDocType suppresses the DOCTYPE event (the default).
func WithStripDocType(v bool) ReaderOption {
	return newReaderOption(identStripDocType{}, v)
}

// WithIgnoreDTD disables all DTD loading, the built-in HTML DTD
// included.
func WithIgnoreDTD(v bool) ReaderOption {
	return newReaderOption(identIgnoreDTD{}, v)
}

// WithDTD supplies a preloaded DTD. The DTD must not be mutated once
// shared.
func WithDTD(v *DTD) ReaderOption {
	return newReaderOption(identDTD{}, v)
}

// WithErrorLog directs recoverable diagnostics to a sink. The default
// discards them.
func WithErrorLog(v logr.Logger) ReaderOption {
	return newReaderOption(identErrorLog{}, v)
}
