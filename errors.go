package sgml

import (
	"errors"
	"fmt"
)

var (
	ErrAmbiguousInput      = errors.New("both an input stream and an href are configured")
	ErrDocTypeNameRequired = errors.New("doctype name required")
	ErrDTDMismatch         = errors.New("DOCTYPE name does not match the loaded DTD")
	ErrEntityUnterminated  = errors.New("entity reference not terminated")
	ErrInvalidDeclaration  = errors.New("invalid markup declaration")
	ErrInvalidElementDecl  = errors.New("invalid element declaration")
	ErrInvalidEntityDecl   = errors.New("invalid entity declaration")
	ErrInvalidAttListDecl  = errors.New("invalid attlist declaration")
	ErrLiteralNotStarted   = errors.New("literal must start with a quote")
	ErrMissingInput        = errors.New("no input configured: need an input stream or an href")
	ErrNameRequired        = errors.New("name is required")
	ErrNameTooLong         = errors.New("name is too long")
	ErrReaderClosed        = errors.New("reader is closed")
	ErrUnsupportedCharset  = errors.New("charset not supported")
)

// ParseError decorates a fatal error with the position of the entity
// that produced it. Recoverable conditions never become ParseErrors;
// they go to the diagnostics sink.
type ParseError struct {
	Entity string
	URI    string
	Line   int
	Column int
	Err    error
}

func (e ParseError) Error() string {
	return fmt.Sprintf(
		"%s in %s (%s) at line %d, column %d",
		e.Err,
		e.Entity,
		e.URI,
		e.Line,
		e.Column,
	)
}

func (e ParseError) Unwrap() error {
	return e.Err
}
