package sgml

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/mindtouch/sgml/internal/debug"
)

// Scan terminator sets. The attribute sets are deliberately loose;
// repair happens around them.
const (
	tagNameTerminators   = " \t\r\n=/><"
	attrNameTerminators  = " \t\r\n=/>'\"<"
	attrValueTerminators = " \t\r\n><"
	docTypeTerminators   = " \t\r\n>["
	piTargetTerminators  = " \t\r\n?>"
	condNameTerminators  = " \t\r\n[]>"
)

// attrPunctuation is the legacy set of separator characters tolerated
// between attributes in real-world HTML.
const attrPunctuation = ",=:;"

// Reader is a pull-style reader over SGML/HTML input that presents a
// well-formed XML event stream. Configure it before the first Read; a
// Reader is not safe for concurrent use.
type Reader struct {
	docType        string
	publicID       string
	systemLiteral  string
	internalSubset string
	baseURI        string
	href           string
	input          io.Reader
	proxy          string
	folding        CaseFolding
	whitespace     WhitespaceHandling
	stripDocType   bool
	ignoreDTD      bool
	dtd            *DTD
	log            logr.Logger

	current *Entity
	state   readerState
	stack   *nodeStack
	node    *node
	event   NodeType
	depth   int

	partial    rune
	textWS     bool
	endTag     string
	newNode    *node
	popToDepth int
	rootCount  int
	rootSeen   bool
	isHTML     bool

	apos    int
	sb      strings.Builder
	name    strings.Builder
	unknown unknownNamespaces
	closed  bool
	err     error
}

// NewReader builds a reader over in (which may be nil when WithHref
// names the document instead).
func NewReader(in io.Reader, options ...ReaderOption) *Reader {
	r := &Reader{
		input:        in,
		whitespace:   WhitespaceAll,
		stripDocType: true,
		log:          logr.Discard(),
		stack:        newNodeStack(),
		state:        stateInitial,
		apos:         -1,
	}
	for _, o := range options {
		switch o.Ident().(type) {
		case identDocType:
			r.docType = o.Value().(string)
		case identPublicID:
			r.publicID = o.Value().(string)
		case identSystemLiteral:
			r.systemLiteral = o.Value().(string)
		case identInternalSubset:
			r.internalSubset = o.Value().(string)
		case identBaseURI:
			r.baseURI = o.Value().(string)
		case identHref:
			r.href = o.Value().(string)
		case identInput:
			r.input = o.Value().(io.Reader)
		case identProxy:
			r.proxy = o.Value().(string)
		case identCaseFolding:
			r.folding = o.Value().(CaseFolding)
		case identWhitespace:
			r.whitespace = o.Value().(WhitespaceHandling)
		case identStripDocType:
			r.stripDocType = o.Value().(bool)
		case identIgnoreDTD:
			r.ignoreDTD = o.Value().(bool)
		case identDTD:
			r.dtd = o.Value().(*DTD)
		case identErrorLog:
			r.log = o.Value().(logr.Logger)
		}
	}
	return r
}

// Read advances to the next event. It returns false only when the
// document is exhausted; an error is returned solely for fatal
// conditions (everything else is repaired and logged).
func (r *Reader) Read() (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.closed {
		return false, ErrReaderClosed
	}
	if r.state == stateAttr || r.state == stateAttrValue {
		r.MoveToElement()
	}

	for {
		switch r.state {
		case stateInitial:
			if err := r.open(); err != nil {
				return false, r.fatal(err)
			}
			r.state = stateMarkup
			r.current.ReadChar()

		case stateMarkup:
			emitted, err := r.parseMarkup()
			if err != nil {
				return false, r.fatal(err)
			}
			if emitted && r.emit() {
				return true, nil
			}

		case statePartialTag:
			// the text event that broke at '<' has been consumed
			r.stack.pop()
			r.state = stateMarkup
			emitted, err := r.parseTag(r.partial)
			if err != nil {
				return false, r.fatal(err)
			}
			if emitted && r.emit() {
				return true, nil
			}

		case statePartialText, stateText:
			if r.parseText(r.current.Char(), true) && r.emit() {
				return true, nil
			}

		case stateEndTag:
			r.retireTransients()
			if r.stack.depth() <= 1 {
				r.state = stateMarkup
				continue
			}
			top := r.stack.top()
			r.stack.pop()
			r.node = top
			r.event = EndElementNode
			if nameMatches(top.name, r.endTag, r.folding == FoldNone) {
				r.state = stateMarkup
			}
			if r.emit() {
				return true, nil
			}

		case stateAutoClose:
			r.retireTransients()
			if r.stack.depth() <= r.popToDepth {
				// nothing left to close
				if r.newNode != nil {
					r.state = statePseudoStartTag
				} else {
					r.state = stateMarkup
				}
				continue
			}
			top := r.stack.top()
			r.stack.pop()
			r.node = top
			r.event = EndElementNode
			if r.stack.depth() <= r.popToDepth {
				if r.newNode != nil {
					r.state = statePseudoStartTag
				} else {
					r.state = stateMarkup
				}
			}
			if r.emit() {
				return true, nil
			}

		case statePseudoStartTag:
			var n *node
			if r.newNode != nil {
				n = r.newNode
				r.newNode = nil
				r.stack.pushNode(n)
			} else {
				// event buffered beneath an injected wrapper
				n = r.stack.top()
			}
			r.node = n
			r.event = n.typ
			r.state = n.saved
			if r.emit() {
				return true, nil
			}

		case stateCDATA:
			emitted, err := r.parseCData()
			if err != nil {
				return false, r.fatal(err)
			}
			if emitted && r.emit() {
				return true, nil
			}

		case stateEOF:
			if parent := r.current.Parent(); parent != nil {
				r.current.Close()
				r.current = parent
				r.state = stateMarkup
				continue
			}
			r.retireTransients()
			if r.stack.depth() > 1 {
				r.newNode = nil
				r.popToDepth = 1
				r.state = stateAutoClose
				continue
			}
			return false, nil

		default:
			return false, r.fatal(fmt.Errorf("reader in unexpected state %s", r.state))
		}
	}
}

// Close releases the input. Further Reads fail.
func (r *Reader) Close() error {
	var err error
	for e := r.current; e != nil; e = e.Parent() {
		if cerr := e.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	r.current = nil
	r.closed = true
	return err
}

// DTD exposes the DTD in effect, if one was loaded.
func (r *Reader) DTD() *DTD {
	return r.dtd
}

func (r *Reader) open() error {
	if r.input != nil && r.href != "" {
		return ErrAmbiguousInput
	}
	var ent *Entity
	switch {
	case r.input != nil:
		ent = NewStreamEntity("document", r.input)
	case r.href != "":
		ent = NewEntity("document", "", r.href, r.proxy)
	default:
		return ErrMissingInput
	}
	if err := ent.Open(nil, r.baseURI); err != nil {
		return err
	}
	if r.baseURI == "" {
		r.baseURI = ent.ResolvedURI()
	}
	r.current = ent
	return r.lazyLoadDTD()
}

// lazyLoadDTD resolves the DTD from the configured doc type or the
// parsed DOCTYPE. HTML loads the built-in DTD. IgnoreDTD suppresses
// every load, HTML mode included.
func (r *Reader) lazyLoadDTD() error {
	if r.dtd == nil && !r.ignoreDTD {
		switch {
		case strings.EqualFold(r.docType, "html"):
			dtd, err := HTMLDTD()
			if err != nil {
				return err
			}
			r.dtd = dtd
		case r.systemLiteral != "":
			dtd, err := LoadDTD(r.docType, r.publicID, r.systemLiteral, r.baseURI, r.proxy)
			if err != nil {
				return err
			}
			r.dtd = dtd
		case r.internalSubset != "" && r.docType != "":
			dtd, err := ParseDTDString(r.docType, r.internalSubset)
			if err != nil {
				return err
			}
			r.dtd = dtd
		}
	}
	if r.dtd != nil && r.docType != "" && !strings.EqualFold(r.dtd.Name(), r.docType) {
		return ErrDTDMismatch
	}
	if strings.EqualFold(r.docType, "html") || (r.dtd != nil && strings.EqualFold(r.dtd.Name(), "html")) {
		r.isHTML = true
	}
	return nil
}

// retireTransients pops frames that recorded already-delivered events:
// text/CDATA/comment/PI/doctype frames and empty elements.
func (r *Reader) retireTransients() {
	for {
		top := r.stack.top()
		if top == nil || top.typ == DocumentNode {
			return
		}
		if top.typ != ElementNode || top.isEmpty {
			r.stack.pop()
			continue
		}
		return
	}
}

func (r *Reader) parseMarkup() (bool, error) {
	r.retireTransients()

	ch := r.current.Char()
	if ch == EOFChar {
		r.state = stateEOF
		return false, nil
	}
	if ch == '<' {
		return r.parseTag(r.current.ReadChar())
	}
	if top := r.stack.top(); top != nil && top.decl != nil && top.decl.IsCDATA() {
		r.state = stateCDATA
		return false, nil
	}
	return r.parseText(ch, false), nil
}

// parseTag dispatches on the character after '<'.
func (r *Reader) parseTag(ch rune) (bool, error) {
	switch {
	case ch == '%':
		return r.parseASP(), nil
	case ch == '!':
		return r.parseDeclaration()
	case ch == '?':
		return r.parsePI(), nil
	case ch == '/':
		return r.parseEndTag(), nil
	case isNameStart(ch):
		return r.parseStartTag()
	default:
		// '<' was just data after all
		r.sb.Reset()
		r.sb.WriteByte('<')
		r.textWS = false
		r.state = statePartialText
		return false, nil
	}
}

// parseASP captures a server-side <% ... %> block as CDATA.
func (r *Reader) parseASP() bool {
	r.current.ReadChar() // past '%'
	value, ok := r.current.ScanToEnd(&r.sb, "ASP block", "%>")
	if !ok {
		r.warn("ASP block not terminated")
	}
	n := r.stack.push(CDATANode, "", value)
	r.node = n
	r.event = CDATANode
	r.state = stateMarkup
	return true
}

func (r *Reader) parseDeclaration() (bool, error) {
	switch ch := r.current.ReadChar(); {
	case ch == '-':
		if r.current.ReadChar() != '-' {
			r.warn("malformed comment")
			r.skipToGt()
			return false, nil
		}
		r.current.ReadChar()
		return r.parseComment(), nil
	case ch == '[':
		return r.parseConditionalBlock(), nil
	case isNameStart(ch):
		name := r.current.ScanToken(&r.name, docTypeTerminators)
		if strings.EqualFold(name, "DOCTYPE") {
			return r.parseDocType()
		}
		r.warn("invalid declaration <!%s ...> ignored", name)
		r.skipToGt()
		return false, nil
	default:
		r.skipToGt()
		return false, nil
	}
}

// parseComment scans to --> and repairs the content for XML: embedded
// '--' runs collapse to '-', and a trailing '-' gets a guard space.
// The current character must be the first one after '<!--'.
func (r *Reader) parseComment() bool {
	value, ok := r.current.ScanToEnd(&r.sb, "comment", "-->")
	if !ok {
		r.warn("comment not terminated")
	}
	for strings.Contains(value, "--") {
		value = strings.ReplaceAll(value, "--", "-")
	}
	if strings.HasSuffix(strings.TrimSpace(value), "-") {
		value += " "
	}
	n := r.stack.push(CommentNode, "", value)
	r.node = n
	r.event = CommentNode
	return true
}

// parseConditionalBlock handles <![CDATA[...]]>; other conditional
// keywords (if, endif, downlevel-revealed) are swallowed.
func (r *Reader) parseConditionalBlock() bool {
	r.current.ReadChar() // past '['
	name := r.current.ScanToken(&r.name, condNameTerminators)
	if strings.EqualFold(name, "CDATA") && r.current.Char() == '[' {
		r.current.ReadChar()
		value, ok := r.current.ScanToEnd(&r.sb, "CDATA section", "]]>")
		if !ok {
			r.warn("CDATA section not terminated")
		}
		n := r.stack.push(CDATANode, "", value)
		r.node = n
		r.event = CDATANode
		r.state = stateMarkup
		return true
	}
	r.skipToGt()
	return false
}

// parsePI scans a processing instruction. The inner XML declaration
// (<?xml ...?>) is discarded: the emitter regenerates its own.
func (r *Reader) parsePI() bool {
	r.current.ReadChar() // past '?'
	target := r.current.ScanToken(&r.name, piTargetTerminators)
	if i := strings.IndexByte(target, ':'); i >= 0 {
		target = target[i+1:]
	}
	r.current.SkipWhitespace()
	var value string
	if r.current.Char() != '>' {
		// scan to '>' rather than '?>': some tools close with '/>'
		v, ok := r.current.ScanToEnd(&r.sb, "processing instruction", ">")
		if !ok {
			r.warn("processing instruction not terminated")
		}
		value = v
	} else {
		r.current.ReadChar()
	}
	value = strings.TrimSuffix(value, "?")
	value = strings.TrimSuffix(value, "/")
	if strings.EqualFold(target, "xml") || target == "" {
		return false
	}
	n := r.stack.push(ProcessingInstructionNode, target, value)
	r.node = n
	r.event = ProcessingInstructionNode
	return true
}

func (r *Reader) parseDocType() (bool, error) {
	r.current.SkipWhitespace()
	name := r.current.ScanToken(&r.name, docTypeTerminators)
	if name == "" {
		r.warn("DOCTYPE name required")
		r.skipToGt()
		return false, nil
	}
	if r.docType == "" {
		r.docType = name
	} else if r.dtd != nil && !strings.EqualFold(r.dtd.Name(), name) {
		return false, ErrDTDMismatch
	}

	havePublic := false
	ch := r.current.SkipWhitespace()
	if isNameStart(ch) {
		switch kw := r.current.ScanToken(&r.name, docTypeTerminators); {
		case strings.EqualFold(kw, "PUBLIC"):
			havePublic = true
			r.publicID = r.scanDocTypeLiteral()
			if q := r.current.SkipWhitespace(); q == '"' || q == '\'' {
				r.systemLiteral = r.scanDocTypeLiteral()
			}
		case strings.EqualFold(kw, "SYSTEM"):
			r.systemLiteral = r.scanDocTypeLiteral()
		default:
			r.warn("unexpected token %q in DOCTYPE", kw)
		}
	}

	if r.current.SkipWhitespace() == '[' {
		r.current.ReadChar()
		subset, ok := r.current.ScanToEnd(&r.sb, "internal subset", "]")
		if !ok {
			r.warn("internal subset not terminated")
		}
		r.internalSubset = subset
	}
	r.skipToGt()

	n := r.stack.push(DocTypeNode, name, r.internalSubset)
	if havePublic {
		n.addAttribute("PUBLIC", r.publicID, true, '"', false)
		// an emitted PUBLIC id needs a system literal to stay
		// well-formed, even an empty one
		n.addAttribute("SYSTEM", r.systemLiteral, true, '"', false)
	} else if r.systemLiteral != "" {
		n.addAttribute("SYSTEM", r.systemLiteral, true, '"', false)
	}
	r.node = n
	r.event = DocTypeNode

	if err := r.lazyLoadDTD(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Reader) scanDocTypeLiteral() string {
	ch := r.current.SkipWhitespace()
	if ch == '"' || ch == '\'' {
		v, ok := r.current.ScanLiteral(&r.sb, ch, nil, false)
		if !ok {
			r.warn("DOCTYPE literal not terminated")
		}
		return v
	}
	return r.current.ScanToken(&r.sb, docTypeTerminators)
}

func (r *Reader) skipToGt() {
	ch := r.current.Char()
	for ch != EOFChar && ch != '>' {
		ch = r.current.ReadChar()
	}
	if ch == '>' {
		r.current.ReadChar()
	}
}

func (r *Reader) parseStartTag() (bool, error) {
	name := foldName(r.current.ScanToken(&r.name, tagNameTerminators), r.folding)
	if len(name) > MaxNameLength {
		return false, ErrNameTooLong
	}
	if !isValidXMLName(name) {
		// not expressible as an XML element; degrade to literal text
		r.warn("element name %q is not a valid XML name; treating as text", name)
		r.sb.Reset()
		r.sb.WriteByte('<')
		r.sb.WriteString(name)
		r.textWS = false
		r.state = statePartialText
		return false, nil
	}

	n := r.stack.push(ElementNode, name, "")
	r.validate(n)

	for {
		ch := r.current.SkipWhitespace()
		if ch == EOFChar {
			break
		}
		if ch == '>' {
			r.current.ReadChar()
			break
		}
		if ch == '/' {
			if r.current.ReadChar() == '>' {
				n.isEmpty = true
				r.current.ReadChar()
				break
			}
			continue
		}
		if ch == '<' {
			r.warn("malformed start tag: '<' before '>'")
			break
		}

		aname := r.current.ScanToken(&r.name, attrNameTerminators)
		if aname == "" {
			// stray terminator ('=', a quote) with no name before it
			r.current.ReadChar()
			continue
		}
		if len(aname) == 1 && strings.ContainsRune(attrPunctuation, rune(aname[0])) {
			continue
		}
		aname = foldName(aname, r.folding)

		ch = r.current.SkipWhitespace()
		var value string
		var quote rune
		hasValue := false
		if ch == '=' || ch == '"' || ch == '\'' {
			if ch == '=' {
				r.current.ReadChar()
				ch = r.current.SkipWhitespace()
			}
			if ch == '"' || ch == '\'' {
				quote = ch
				v, ok := r.current.ScanLiteral(&r.sb, ch, r.resolveEntity, true)
				if !ok {
					r.warn("attribute %q: value literal not terminated; attribute dropped", aname)
					continue
				}
				value = v
				hasValue = true
			} else if ch != '>' && ch != EOFChar {
				value = r.current.ScanToken(&r.sb, attrValueTerminators)
				hasValue = true
			}
		}

		if !isValidAttrName(aname) {
			if debug.Enabled {
				debug.Printf("dropping attribute with invalid name %q", aname)
			}
			continue
		}
		a := n.addAttribute(aname, value, hasValue, quote, r.folding == FoldNone)
		if a == nil {
			r.warn("duplicate attribute %q dropped", aname)
			continue
		}
		if n.decl != nil {
			a.decl = n.decl.FindAttribute(aname)
		}
	}

	r.applyScopes(n)

	if r.stack.depth() == 2 {
		r.rootCount++
		if r.rootCount > 1 {
			r.warn("second root element %q; ignoring the remainder of the input", n.name)
			r.stack.pop()
			r.state = stateEOF
			return false, nil
		}
	}

	if r.validateContent(n) {
		return false, nil
	}
	r.node = n
	r.event = ElementNode
	r.state = stateMarkup
	return true, nil
}

// applyScopes overrides the inherited xml:space and xml:lang scopes
// from the element's own attributes.
func (r *Reader) applyScopes(n *node) {
	if a := n.attributeByName("xml:space", true); a != nil {
		switch a.Value() {
		case "preserve":
			n.space = SpacePreserve
		case "default":
			n.space = SpaceDefault
		}
	}
	if a := n.attributeByName("xml:lang", true); a != nil {
		n.lang = a.Value()
	}
}

// validate attaches the element's DTD declaration and applies declared
// EMPTY content.
func (r *Reader) validate(n *node) {
	if r.dtd == nil {
		return
	}
	if decl := r.dtd.FindElement(n.name); decl != nil {
		n.decl = decl
		if decl.IsEmpty() {
			n.isEmpty = true
		}
	}
}

// validateContent decides whether the freshly pushed element is legal
// in the current parent. When it is not, and the intervening parents
// have optional end tags, it arranges the auto-close cascade and
// reports true.
func (r *Reader) validateContent(n *node) bool {
	if r.dtd == nil {
		return false
	}
	top := r.stack.depth() - 1 // index of n
	i := top - 1
	for ; i > 0; i-- {
		f := r.stack.get(i)
		if f.decl == nil {
			break // undeclared parents are permissive
		}
		if strings.EqualFold(f.name, r.dtd.Name()) {
			break // the root can contain anything
		}
		if strings.EqualFold(f.name, "body") {
			break // never auto-close BODY
		}
		if f.decl.CanContain(n.name, r.dtd) {
			break
		}
		if !f.decl.EndTagOptional {
			break // cannot synthesize this parent's close
		}
	}
	if i >= top-1 {
		return false
	}
	if debug.Enabled {
		debug.Printf("auto-closing to depth %d to place <%s>", i+1, n.name)
	}
	r.newNode = r.stack.detachTop()
	r.popToDepth = i + 1
	r.state = stateAutoClose
	return true
}

// parseEndTag scans </name> and arranges the close cascade toward the
// nearest matching open element.
func (r *Reader) parseEndTag() bool {
	r.current.ReadChar() // past '/'
	name := foldName(r.current.ScanToken(&r.name, tagNameTerminators), r.folding)
	if ch := r.current.SkipWhitespace(); ch != '>' && ch != EOFChar {
		r.warn("expected '>' to close end tag </%s>", name)
	}
	r.skipToGt()
	if name == "" {
		r.warn("end tag with no name ignored")
		return false
	}

	ci := r.folding == FoldNone
	found := -1
	for i := r.stack.depth() - 1; i > 0; i-- {
		f := r.stack.get(i)
		if f.typ == ElementNode && nameMatches(f.name, name, ci) {
			found = i
			break
		}
	}
	if found < 0 {
		r.warn("no matching start tag for </%s>; ignored", name)
		return false
	}
	r.endTag = r.stack.get(found).name
	r.state = stateEndTag
	return false
}

// parseText accumulates character data up to the next tag, expanding
// entity references. resume continues a scan whose buffer already
// holds partial text.
func (r *Reader) parseText(ch rune, resume bool) bool {
	if !resume {
		r.sb.Reset()
		r.textWS = true
	}
	brokeAtTag := false
	for ch != EOFChar {
		if ch == '&' {
			r.textWS = false
			r.expandReference(&r.sb)
			ch = r.current.Char()
			continue
		}
		if ch == '<' {
			c := r.current.ReadChar()
			if isNameStart(c) || c == '/' || c == '!' || c == '?' || c == '%' {
				r.partial = c
				brokeAtTag = true
				break
			}
			// stray '<' is data
			r.sb.WriteByte('<')
			r.textWS = false
			ch = c
			continue
		}
		if !isWhite(ch) {
			r.textWS = false
		}
		r.sb.WriteRune(ch)
		ch = r.current.ReadChar()
	}

	typ := TextNode
	if r.textWS {
		typ = WhitespaceNode
	}
	n := r.stack.push(typ, "", r.sb.String())
	r.node = n
	r.event = typ
	if brokeAtTag {
		r.state = statePartialTag
	} else {
		r.state = stateMarkup
	}
	return true
}

// expandReference resolves the reference at the current '&' into buf,
// or switches the character source when the DTD maps the name to an
// external entity. Broken references are preserved verbatim.
func (r *Reader) expandReference(buf *strings.Builder) {
	ch := r.current.ReadChar()
	if ch == '#' {
		s, ok := r.current.ExpandCharEntity()
		if !ok {
			r.warn("invalid character reference %q kept as text", s)
		}
		buf.WriteString(s)
		return
	}
	if !isNameStart(ch) {
		buf.WriteByte('&')
		return
	}

	r.name.Reset()
	for ch != EOFChar && ch != ';' && isNameChar(ch) {
		r.name.WriteRune(ch)
		ch = r.current.ReadChar()
	}
	name := r.name.String()
	terminated := ch == ';'
	if terminated {
		r.current.ReadChar()
	}

	if text, ok := predefinedEntity(name); ok {
		buf.WriteString(text)
		return
	}
	if r.dtd != nil {
		if decl, ok := r.dtd.FindEntity(name); ok {
			if decl.IsInternal() {
				buf.WriteString(decl.Literal)
				return
			}
			child := NewEntity(name, decl.PublicID, decl.SystemID, r.proxy)
			base := r.current.ResolvedURI()
			if base == "" {
				base = r.baseURI
			}
			if err := child.Open(r.current, base); err != nil {
				r.warn("failed to open entity &%s;: %v", name, err)
			} else {
				r.current = child
				r.current.ReadChar()
				return
			}
		}
	}

	r.warn("undefined entity &%s", name)
	buf.WriteByte('&')
	buf.WriteString(name)
	if terminated {
		buf.WriteByte(';')
	}
}

// resolveEntity is the attribute-literal resolver: predefined names
// and internal DTD entities expand; external entities do not switch
// the input inside an attribute value.
func (r *Reader) resolveEntity(name string) (string, bool) {
	if text, ok := predefinedEntity(name); ok {
		return text, true
	}
	if r.dtd != nil {
		if decl, ok := r.dtd.FindEntity(name); ok && decl.IsInternal() {
			return decl.Literal, true
		}
	}
	return "", false
}

func predefinedEntity(name string) (string, bool) {
	switch name {
	case "amp":
		return "&", true
	case "lt":
		return "<", true
	case "gt":
		return ">", true
	case "quot":
		return `"`, true
	case "apos":
		return "'", true
	}
	return "", false
}

// parseCData scans the raw content of a CDATA-declared element
// (script, style) until its matching end tag. Embedded comments and
// processing instructions interleave as their own events.
func (r *Reader) parseCData() (bool, error) {
	r.retireTransients()
	elem := r.stack.top()
	if elem == nil || elem.typ != ElementNode {
		r.state = stateMarkup
		return false, nil
	}

	r.sb.Reset()
	ch := r.current.Char()
	for ch != EOFChar {
		if ch != '<' {
			r.sb.WriteRune(ch)
			ch = r.current.ReadChar()
			continue
		}

		switch next := r.current.PeekNext(); {
		case next == '/':
			r.current.ReadChar() // '/'
			r.current.ReadChar()
			name := r.current.ScanToken(&r.name, tagNameTerminators)
			if strings.EqualFold(name, elem.name) {
				r.skipToGt()
				return r.flushCData(elem), nil
			}
			// an end tag for something else stays data
			r.sb.WriteString("</")
			r.sb.WriteString(name)
			ch = r.current.Char()
		case next == '!':
			if r.sb.Len() > 0 {
				// deliver the text read so far; the comment is picked
				// up on the next Read, still in CDATA mode
				return r.emitCData(), nil
			}
			r.current.ReadChar() // '!'
			if r.current.ReadChar() == '-' && r.current.PeekNext() == '-' {
				r.current.ReadChar()
				r.current.ReadChar()
				return r.parseComment(), nil
			}
			r.sb.WriteString("<!")
			ch = r.current.Char()
		case next == '?':
			if r.sb.Len() > 0 {
				return r.emitCData(), nil
			}
			r.current.ReadChar() // '?'
			return r.parsePI(), nil
		case isNameStart(next):
			// a stray tag inside raw content: keep its name as data
			// and swallow an immediately following '>'
			r.current.ReadChar()
			name := r.current.ScanToken(&r.name, tagNameTerminators)
			r.sb.WriteByte('<')
			r.sb.WriteString(name)
			if r.current.Char() == '>' {
				r.warn("markup <%s> inside CDATA content", name)
				r.current.ReadChar()
			}
			ch = r.current.Char()
		default:
			r.sb.WriteByte('<')
			ch = r.current.ReadChar()
		}
	}

	// end of input inside CDATA
	r.state = stateEOF
	if r.sb.Len() > 0 {
		n := r.stack.push(CDATANode, "", cleanCData(r.sb.String()))
		r.node = n
		r.event = CDATANode
		return true, nil
	}
	return false, nil
}

// flushCData ends CDATA mode at the element's own end tag: any
// pending text is delivered first, and the close cascade follows.
func (r *Reader) flushCData(elem *node) bool {
	r.endTag = elem.name
	r.state = stateEndTag
	if r.sb.Len() == 0 {
		return false
	}
	n := r.stack.push(CDATANode, "", cleanCData(r.sb.String()))
	r.node = n
	r.event = CDATANode
	return true
}

func (r *Reader) emitCData() bool {
	n := r.stack.push(CDATANode, "", cleanCData(r.sb.String()))
	r.node = n
	r.event = CDATANode
	// state remains CDATA
	return true
}

// cleanCData strips sequences that cannot nest inside an emitted
// CDATA section, including the JavaScript /**/ hiding guard.
func cleanCData(s string) string {
	s = strings.ReplaceAll(s, "<![CDATA[", "")
	s = strings.ReplaceAll(s, "]]>", "")
	s = strings.ReplaceAll(s, "/**/", "")
	return s
}

// emit applies the suppression rules and the HTML wrapper injection to
// the event the state machine produced. It reports whether the event
// is deliverable.
func (r *Reader) emit() bool {
	switch r.event {
	case WhitespaceNode:
		if r.whitespace == WhitespaceNone {
			return false
		}
		if r.whitespace == WhitespaceSignificant && r.XMLSpace() != SpacePreserve {
			return false
		}
		if r.node.value == "" {
			return false
		}
	case TextNode:
		if r.node.value == "" {
			return false
		}
	case CDATANode:
		if r.node.value == "" {
			return false
		}
	case DocTypeNode:
		if r.stripDocType {
			return false
		}
	}

	r.depth = r.stack.depth() - 2
	if r.event == EndElementNode {
		r.depth = r.stack.depth() - 1
	}

	// the wrapper slots into the buffered event's place, so it
	// inherits the depth computed above
	if !r.rootSeen {
		switch r.event {
		case ElementNode, TextNode, CDATANode:
			r.rootSeen = true
			if r.isHTML && !(r.event == ElementNode && strings.EqualFold(r.node.name, "html")) {
				r.injectHTMLWrapper()
			}
		}
	}
	return true
}

// injectHTMLWrapper synthesizes an html element beneath the first
// content event so HTML-mode output always has the expected root. The
// buffered inner event is replayed by the next Read.
func (r *Reader) injectHTMLWrapper() {
	inner := r.stack.top()
	inner.saved = r.state

	wrapper := r.stack.push(ElementNode, foldName("html", r.folding), "")
	r.stack.swapTop()
	wrapper.simulated = true
	r.validate(wrapper)

	r.node = wrapper
	r.event = ElementNode
	r.state = statePseudoStartTag
	if debug.Enabled {
		debug.Printf("synthesized <%s> wrapper", wrapper.name)
	}
}

func foldName(name string, folding CaseFolding) string {
	switch folding {
	case FoldToUpper:
		return strings.ToUpper(name)
	case FoldToLower:
		return strings.ToLower(name)
	}
	return name
}

func nameMatches(a, b string, caseInsensitive bool) bool {
	if caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// isValidXMLName checks XML Name validity for element names.
func isValidXMLName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		if i == 0 {
			if !isNameStart(c) {
				return false
			}
			continue
		}
		if !isNameChar(c) {
			return false
		}
	}
	return true
}

// isValidAttrName checks NMTOKEN validity, and NCName validity of the
// local part for prefixed names.
func isValidAttrName(name string) bool {
	if name == "" {
		return false
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		prefix, local := name[:i], name[i+1:]
		if prefix == "" || local == "" {
			return false
		}
		for _, c := range local {
			if c == ':' || !isNameChar(c) {
				return false
			}
		}
		for _, c := range prefix {
			if c == ':' || !isNameChar(c) {
				return false
			}
		}
		return true
	}
	for _, c := range name {
		if !isNameChar(c) {
			return false
		}
	}
	return true
}

func (r *Reader) warn(format string, args ...interface{}) {
	kv := []interface{}{}
	if r.current != nil {
		kv = append(kv,
			"entity", r.current.Name(),
			"uri", r.current.URIPath(),
			"line", r.current.Line(),
			"column", r.current.Column(),
		)
	}
	r.log.Info(fmt.Sprintf(format, args...), kv...)
}

func (r *Reader) fatal(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(ParseError); !ok && r.current != nil {
		err = ParseError{
			Entity: r.current.Name(),
			URI:    r.current.URIPath(),
			Line:   r.current.Line(),
			Column: r.current.Column(),
			Err:    err,
		}
	}
	r.err = err
	r.state = stateEOF
	return err
}
