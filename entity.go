package sgml

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lestrrat-go/strcursor"
	"github.com/mindtouch/sgml/encoding"
	"github.com/mindtouch/sgml/internal/debug"
	"github.com/pkg/errors"
)

// EOFChar is the sentinel Char/ReadChar return once an entity's input
// is exhausted.
const EOFChar = rune(-1)

// EntityResolver maps a named entity reference to its replacement
// text. The second return reports whether the name is known.
type EntityResolver func(name string) (string, bool)

// An Entity is one character source: the main document, an external
// DTD, or an expanded external entity. Entities nest; expanding an
// external entity pushes a child whose parent is resumed at EOF.
type Entity struct {
	name     string
	publicID string
	uri      string
	literal  string
	proxy    string
	isLit    bool

	parent *Entity
	stream io.Reader
	closer io.Closer
	cursor *strcursor.RuneCursor
	last   rune
	opened bool
}

// NewEntity describes an external entity by its identifiers. Nothing
// is fetched until Open.
func NewEntity(name, publicID, uri, proxy string) *Entity {
	return &Entity{name: name, publicID: publicID, uri: uri, proxy: proxy}
}

// NewLiteralEntity wraps replacement text as a character source.
func NewLiteralEntity(name, literal string) *Entity {
	return &Entity{name: name, literal: literal, isLit: true}
}

// NewStreamEntity wraps an in-memory or caller-supplied stream.
func NewStreamEntity(name string, in io.Reader) *Entity {
	e := &Entity{name: name, stream: in}
	if c, ok := in.(io.Closer); ok {
		e.closer = c
	}
	return e
}

// Name returns the entity name used in diagnostics.
func (e *Entity) Name() string {
	if e.name == "" {
		return "document"
	}
	return e.name
}

// Parent returns the entity this one was expanded from, or nil for the
// outermost source.
func (e *Entity) Parent() *Entity {
	return e.parent
}

// URIPath returns the path portion of the resolved URI, for
// diagnostics.
func (e *Entity) URIPath() string {
	if e.uri == "" {
		return ""
	}
	if u, err := url.Parse(e.uri); err == nil && u.Path != "" {
		return u.Path
	}
	return e.uri
}

// ResolvedURI returns the absolute URI this entity was loaded from,
// which becomes the base for anything it references.
func (e *Entity) ResolvedURI() string {
	return e.uri
}

// Line returns the 1-based line of the current character.
func (e *Entity) Line() int {
	if e.cursor == nil {
		return 0
	}
	return e.cursor.LineNumber()
}

// Column returns the 1-based column of the current character.
func (e *Entity) Column() int {
	if e.cursor == nil {
		return 0
	}
	return e.cursor.Column()
}

// Open prepares the entity for reading. parent is the entity this one
// was expanded from (nil for the document); baseURI resolves a
// relative system identifier.
func (e *Entity) Open(parent *Entity, baseURI string) error {
	e.parent = parent
	if e.opened {
		return nil
	}

	var raw []byte
	var charset string
	switch {
	case e.isLit:
		raw = []byte(e.literal)
	case e.stream != nil:
		b, err := io.ReadAll(e.stream)
		if err != nil {
			return errors.Wrapf(err, "failed to read entity %s", e.Name())
		}
		raw = b
	default:
		resolved, err := resolveURI(baseURI, e.uri)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %q against %q", e.uri, baseURI)
		}
		e.uri = resolved
		raw, charset, err = e.fetch(resolved)
		if err != nil {
			return errors.Wrapf(err, "failed to open entity %s", e.Name())
		}
	}

	decoded, err := decodeStream(raw, charset)
	if err != nil {
		return errors.Wrapf(err, "failed to decode entity %s", e.Name())
	}
	e.cursor = strcursor.NewRuneCursor(bytes.NewReader(decoded))
	e.opened = true
	return nil
}

// Close releases the underlying stream, if the entity owns one.
func (e *Entity) Close() error {
	e.cursor = nil
	e.last = EOFChar
	if e.closer != nil {
		c := e.closer
		e.closer = nil
		return c.Close()
	}
	return nil
}

// Char returns the current character without advancing, or EOFChar.
func (e *Entity) Char() rune {
	return e.last
}

// PeekNext returns the character after the current one without
// consuming anything.
func (e *Entity) PeekNext() rune {
	if e.cursor == nil || e.cursor.Done() {
		return EOFChar
	}
	return e.cursor.Peek()
}

// ReadChar advances one character and returns the new current one.
func (e *Entity) ReadChar() rune {
	if e.cursor == nil || e.cursor.Done() {
		e.last = EOFChar
		return e.last
	}
	e.last = e.cursor.Peek()
	e.cursor.Advance(1)
	return e.last
}

func isWhite(c rune) bool {
	return c == 0x20 || c == 0x9 || c == 0xa || c == 0xd
}

// SkipWhitespace advances past ASCII whitespace and returns the first
// character that is not.
func (e *Entity) SkipWhitespace() rune {
	ch := e.last
	for isWhite(ch) {
		ch = e.ReadChar()
	}
	return ch
}

// ScanToken appends characters to buf until the current character
// appears in terminators (or input ends), and returns the token. The
// current character on return is the terminator.
func (e *Entity) ScanToken(buf *strings.Builder, terminators string) string {
	buf.Reset()
	ch := e.last
	for ch != EOFChar && !strings.ContainsRune(terminators, ch) {
		buf.WriteRune(ch)
		ch = e.ReadChar()
	}
	return buf.String()
}

// ScanLiteral scans a quoted literal. The current character must be
// the opening quote. Numeric character references are expanded; named
// references go through resolve when provided and are preserved
// verbatim otherwise. When recoverGt is set, a '>' terminates the scan
// the way end-of-input does, so a tag with a runaway quote cannot eat
// the rest of the document. The boolean result reports whether the
// closing quote was actually seen.
func (e *Entity) ScanLiteral(buf *strings.Builder, quote rune, resolve EntityResolver, recoverGt bool) (string, bool) {
	buf.Reset()
	ch := e.ReadChar() // step past the opening quote
	for ch != EOFChar && ch != quote {
		if ch == '&' {
			e.scanReference(buf, resolve)
			ch = e.last
			continue
		}
		if recoverGt && ch == '>' {
			return buf.String(), false
		}
		buf.WriteRune(ch)
		ch = e.ReadChar()
	}
	if ch != quote {
		return buf.String(), false
	}
	e.ReadChar() // step past the closing quote
	return buf.String(), true
}

// scanReference handles the text after an '&': a numeric character
// reference, a named reference, or a bare ampersand kept verbatim.
func (e *Entity) scanReference(buf *strings.Builder, resolve EntityResolver) {
	ch := e.ReadChar()
	if ch == '#' {
		s, _ := e.ExpandCharEntity()
		buf.WriteString(s)
		return
	}

	var name strings.Builder
	for ch != EOFChar && isNameChar(ch) && ch != ';' {
		name.WriteRune(ch)
		ch = e.ReadChar()
	}
	terminated := ch == ';'
	if terminated {
		e.ReadChar()
	}
	if name.Len() > 0 && resolve != nil {
		if text, ok := resolve(name.String()); ok {
			buf.WriteString(text)
			return
		}
	}
	// unknown reference: no characters are dropped
	buf.WriteByte('&')
	buf.WriteString(name.String())
	if terminated {
		buf.WriteByte(';')
	}
}

// ScanToEnd consumes input until the multi-character marker, returning
// everything before it. label names the construct for diagnostics;
// the boolean result is false when input ended before the marker.
func (e *Entity) ScanToEnd(buf *strings.Builder, label, marker string) (string, bool) {
	buf.Reset()
	m := []rune(marker)
	ch := e.last
	for ch != EOFChar {
		if ch == m[0] && e.matchAhead(m[1:]) {
			if len(m) > 1 {
				e.cursor.Advance(len(m) - 1)
			}
			e.ReadChar()
			return buf.String(), true
		}
		buf.WriteRune(ch)
		ch = e.ReadChar()
	}
	if debug.Enabled {
		debug.Printf("unexpected EOF scanning %s for %q", label, marker)
	}
	return buf.String(), false
}

func (e *Entity) matchAhead(tail []rune) bool {
	if e.cursor == nil {
		return false
	}
	for i, r := range tail {
		if e.cursor.PeekN(i+1) != r {
			return false
		}
	}
	return true
}

// ExpandCharEntity parses the digits of a numeric character reference.
// The current character must be the '#'. A valid reference yields the
// referenced character; a broken one yields the consumed text verbatim
// so that no input is lost.
func (e *Entity) ExpandCharEntity() (string, bool) {
	var raw strings.Builder
	raw.WriteString("&#")

	ch := e.ReadChar() // past '#'
	hex := false
	if ch == 'x' || ch == 'X' {
		hex = true
		raw.WriteRune(ch)
		ch = e.ReadChar()
	}

	var val int32
	digits := 0
	for ch != EOFChar {
		var d int32 = -1
		switch {
		case ch >= '0' && ch <= '9':
			d = ch - '0'
		case hex && ch >= 'a' && ch <= 'f':
			d = ch - 'a' + 10
		case hex && ch >= 'A' && ch <= 'F':
			d = ch - 'A' + 10
		}
		if d < 0 {
			break
		}
		if hex {
			val = val*16 + d
		} else {
			val = val*10 + d
		}
		digits++
		raw.WriteRune(ch)
		ch = e.ReadChar()
	}

	// a trailing semicolon belongs to the reference; anything else is
	// retained for the caller
	semi := ch == ';'
	if semi {
		e.ReadChar()
	}

	if digits == 0 || !isChar(rune(val)) {
		if semi {
			raw.WriteByte(';')
		}
		return raw.String(), false
	}
	return string(rune(val)), true
}

// isChar reports whether r is a character XML allows in content.
func isChar(r rune) bool {
	if r == utf8.RuneError || r > unicode.MaxRune {
		return false
	}
	c := uint32(r)
	if c < 0x100 {
		return c == 0x9 || c == 0xa || c == 0xd || (0x20 <= c && c <= 0xff)
	}
	return (0x100 <= c && c <= 0xd7ff) || (0xe000 <= c && c <= 0xfffd) || (0x10000 <= c && c <= 0x10ffff)
}

func isNameStart(r rune) bool {
	return r == '_' || r == ':' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '.' || r == '-' || r == '_' || r == ':' ||
		unicode.IsLetter(r) || unicode.IsDigit(r) ||
		unicode.In(r, unicode.Extender)
}

var (
	patUTF8    = []byte{0xEF, 0xBB, 0xBF}
	patUTF16LE = []byte{0xFF, 0xFE}
	patUTF16BE = []byte{0xFE, 0xFF}
)

// decodeStream converts raw bytes to UTF-8, honoring a BOM first and a
// transport charset hint second.
func decodeStream(raw []byte, charset string) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, patUTF8):
		return raw[3:], nil
	case bytes.HasPrefix(raw, patUTF16LE):
		charset = "utf16le"
		raw = raw[2:]
	case bytes.HasPrefix(raw, patUTF16BE):
		charset = "utf16be"
		raw = raw[2:]
	}
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return raw, nil
	}
	enc := encoding.Load(charset)
	if enc == nil {
		return nil, errors.Wrap(ErrUnsupportedCharset, charset)
	}
	return enc.NewDecoder().Bytes(raw)
}

// resolveURI makes ref absolute against base. Plain filesystem paths
// are accepted on either side.
func resolveURI(base, ref string) (string, error) {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref, nil
	}
	if base != "" {
		if b, err := url.Parse(base); err == nil && b.IsAbs() {
			r, err := url.Parse(ref)
			if err != nil {
				return "", err
			}
			return b.ResolveReference(r).String(), nil
		}
		if !filepath.IsAbs(ref) {
			return filepath.Join(filepath.Dir(base), ref), nil
		}
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, ref), nil
}

// fetch retrieves the entity bytes. http and https go through the
// configured proxy; everything else is treated as a filesystem path.
func (e *Entity) fetch(resolved string) ([]byte, string, error) {
	if u, err := url.Parse(resolved); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		tr := &http.Transport{}
		if e.proxy != "" {
			p, err := url.Parse(e.proxy)
			if err != nil {
				return nil, "", errors.Wrap(err, "invalid proxy")
			}
			tr.Proxy = http.ProxyURL(p)
		}
		client := &http.Client{Transport: tr}
		resp, err := client.Get(resolved)
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", errors.Errorf("GET %s: %s", resolved, resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", err
		}
		charset := ""
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
			charset = params["charset"]
		}
		return body, charset, nil
	}

	path := resolved
	if u, err := url.Parse(resolved); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return b, "", nil
}
