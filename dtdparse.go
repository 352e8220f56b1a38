package sgml

import (
	"strings"

	"github.com/mindtouch/sgml/internal/debug"
	"github.com/pkg/errors"
)

// dtdParser reads SGML declaration syntax: <!ELEMENT>, <!ATTLIST>,
// <!ENTITY>, comment declarations and marked sections, with parameter
// entities expanded through the same nested-entity discipline the
// document reader uses.
type dtdParser struct {
	dtd     *DTD
	current *Entity
	baseURI string
	proxy   string

	sb           strings.Builder
	includeDepth int
}

// ParseDTD parses declarations from an already-opened entity into a
// new DTD named name.
func ParseDTD(name string, src *Entity, baseURI, proxy string) (*DTD, error) {
	p := &dtdParser{
		dtd:     newDTD(name),
		current: src,
		baseURI: baseURI,
		proxy:   proxy,
	}
	src.ReadChar()
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.dtd, nil
}

// ParseDTDString parses DTD text held in memory (internal subsets, the
// built-in HTML DTD, tests).
func ParseDTDString(name, text string) (*DTD, error) {
	ent := NewLiteralEntity(name, text)
	if err := ent.Open(nil, ""); err != nil {
		return nil, err
	}
	return ParseDTD(name, ent, "", "")
}

// LoadDTD fetches and parses an external DTD.
func LoadDTD(name, publicID, uri, baseURI, proxy string) (*DTD, error) {
	ent := NewEntity(name, publicID, uri, proxy)
	if err := ent.Open(nil, baseURI); err != nil {
		return nil, errors.Wrap(err, "failed to open DTD")
	}
	defer ent.Close()
	return ParseDTD(name, ent, ent.ResolvedURI(), proxy)
}

func (p *dtdParser) wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(ParseError); ok {
		return err
	}
	return ParseError{
		Entity: p.current.Name(),
		URI:    p.current.URIPath(),
		Line:   p.current.Line(),
		Column: p.current.Column(),
		Err:    err,
	}
}

func (p *dtdParser) run() error {
	for {
		ch, err := p.skipSpace(true)
		if err != nil {
			return p.wrap(err)
		}
		switch ch {
		case EOFChar:
			return nil
		case '<':
			if err := p.parseDecl(); err != nil {
				return p.wrap(err)
			}
		case ']':
			// close of an included marked section
			if p.includeDepth == 0 {
				return p.wrap(errors.New("unexpected ']' outside a marked section"))
			}
			if p.read() != ']' {
				return p.wrap(errors.New("marked section must close with ']]>'"))
			}
			if p.read() != '>' {
				return p.wrap(errors.New("marked section must close with ']]>'"))
			}
			p.read()
			p.includeDepth--
		default:
			return p.wrap(errors.Errorf("unexpected character %q in DTD", string(ch)))
		}
	}
}

// cur returns the current character, resuming parent entities as
// nested sources drain.
func (p *dtdParser) cur() rune {
	ch := p.current.Char()
	for ch == EOFChar && p.current.Parent() != nil {
		parent := p.current.Parent()
		p.current.Close()
		p.current = parent
		ch = p.current.Char()
	}
	return ch
}

func (p *dtdParser) read() rune {
	p.current.ReadChar()
	return p.cur()
}

// skipSpace advances past whitespace and -- comments --, expanding
// %pe; references when expandPE is set, and returns the first
// interesting character.
func (p *dtdParser) skipSpace(expandPE bool) (rune, error) {
	for {
		ch := p.cur()
		switch {
		case isWhite(ch):
			p.read()
		case ch == '-' && p.current.PeekNext() == '-':
			p.read() // second '-'
			p.read() // first comment char
			p.current.ScanToEnd(&p.sb, "comment", "--")
			p.cur()
		case expandPE && ch == '%':
			if err := p.pushParameterEntity(); err != nil {
				return EOFChar, err
			}
		default:
			return ch, nil
		}
	}
}

// scanName accumulates name characters starting at the current one.
func (p *dtdParser) scanName() string {
	p.sb.Reset()
	ch := p.cur()
	for ch != EOFChar && isNameChar(ch) {
		p.sb.WriteRune(ch)
		ch = p.read()
	}
	return p.sb.String()
}

// pushParameterEntity expands a %name; reference by making the
// entity's replacement the current character source.
func (p *dtdParser) pushParameterEntity() error {
	p.read() // past '%'
	name := p.scanName()
	if name == "" {
		return errors.New("'%' must start a parameter entity reference")
	}
	if p.cur() == ';' {
		p.read()
	}
	decl, ok := p.dtd.findParameterEntity(name)
	if !ok {
		return errors.Errorf("undefined parameter entity %%%s;", name)
	}
	if debug.Enabled {
		debug.Printf("expanding parameter entity %%%s;", name)
	}
	var child *Entity
	if decl.IsInternal() {
		child = NewLiteralEntity("%"+name, decl.Literal)
	} else {
		child = NewEntity("%"+name, decl.PublicID, decl.SystemID, p.proxy)
	}
	base := p.current.ResolvedURI()
	if base == "" {
		base = p.baseURI
	}
	if err := child.Open(p.current, base); err != nil {
		return err
	}
	p.current = child
	p.read()
	return nil
}

func (p *dtdParser) parseDecl() error {
	switch p.read() { // past '<'
	case '!':
		// declaration proper
	case '?':
		p.read()
		p.current.ScanToEnd(&p.sb, "processing instruction", ">")
		p.cur()
		return nil
	default:
		return errors.New("expected a markup declaration")
	}

	switch ch := p.read(); {
	case ch == '-':
		if p.read() != '-' {
			return errors.New("malformed comment declaration")
		}
		p.read()
		p.current.ScanToEnd(&p.sb, "comment", "-->")
		p.cur()
		return nil
	case ch == '[':
		return p.parseMarkedSection()
	case ch == '>':
		p.read() // empty declaration <!>
		return nil
	case isNameStart(ch):
		kw := strings.ToUpper(p.scanName())
		switch kw {
		case "ELEMENT":
			return p.parseElementDecl()
		case "ATTLIST":
			return p.parseAttListDecl()
		case "ENTITY":
			return p.parseEntityDecl()
		default:
			// NOTATION, USEMAP, SHORTREF and friends are not needed to
			// drive repair; skip the declaration
			p.current.ScanToEnd(&p.sb, kw, ">")
			p.cur()
			return nil
		}
	default:
		return errors.Errorf("unexpected character %q after '<!'", string(ch))
	}
}

func (p *dtdParser) parseMarkedSection() error {
	p.read() // past '['
	if _, err := p.skipSpace(true); err != nil {
		return err
	}
	kw := strings.ToUpper(p.scanName())
	if _, err := p.skipSpace(true); err != nil {
		return err
	}
	if p.cur() != '[' {
		return errors.New("marked section keyword must be followed by '['")
	}
	p.read()
	switch kw {
	case "IGNORE":
		p.current.ScanToEnd(&p.sb, "ignored section", "]]>")
		p.cur()
		return nil
	case "INCLUDE", "TEMP":
		p.includeDepth++
		return nil
	default:
		return errors.Errorf("unsupported marked section keyword %q", kw)
	}
}

// parseNameGroup parses either a single name or a (a|b|c) group,
// returning upper-cased names.
func (p *dtdParser) parseNameGroup() ([]string, error) {
	if p.cur() == '(' {
		return p.parseParenNameGroup()
	}
	name := p.scanName()
	if name == "" {
		return nil, ErrNameRequired
	}
	return []string{strings.ToUpper(name)}, nil
}

func (p *dtdParser) parseParenNameGroup() ([]string, error) {
	p.read() // past '('
	var names []string
	for {
		ch, err := p.skipSpace(true)
		if err != nil {
			return nil, err
		}
		if ch == ')' {
			p.read()
			return names, nil
		}
		name := p.scanName()
		if name == "" {
			return nil, errors.New("name group member expected")
		}
		names = append(names, strings.ToUpper(name))
		ch, err = p.skipSpace(true)
		if err != nil {
			return nil, err
		}
		switch ch {
		case '|', ',', '&':
			p.read()
		case ')':
			p.read()
			return names, nil
		default:
			return nil, errors.Errorf("unexpected %q in name group", string(ch))
		}
	}
}

func (p *dtdParser) parseElementDecl() error {
	if _, err := p.skipSpace(true); err != nil {
		return err
	}
	subjects, err := p.parseNameGroup()
	if err != nil {
		return errors.Wrap(ErrInvalidElementDecl, err.Error())
	}

	startOpt, endOpt, err := p.parseOmitFlags()
	if err != nil {
		return err
	}

	ch, err := p.skipSpace(true)
	if err != nil {
		return err
	}
	var content DeclaredContent
	var model *ContentGroup
	if ch == '(' {
		content = ModelContent
		model, err = p.parseGroup()
		if err != nil {
			return err
		}
	} else {
		switch kw := strings.ToUpper(p.scanName()); kw {
		case "EMPTY":
			content = EmptyContent
		case "CDATA":
			content = CDATAContent
		case "RCDATA":
			content = RCDATAContent
		case "ANY":
			content = AnyContent
		default:
			return errors.Wrapf(ErrInvalidElementDecl, "unknown declared content %q", kw)
		}
	}

	var inclusions, exclusions []string
	for {
		ch, err = p.skipSpace(true)
		if err != nil {
			return err
		}
		if ch == '-' || ch == '+' {
			p.read()
			names, err := p.parseParenNameGroup()
			if err != nil {
				return err
			}
			if ch == '-' {
				exclusions = append(exclusions, names...)
			} else {
				inclusions = append(inclusions, names...)
			}
			continue
		}
		break
	}
	if ch != '>' {
		return errors.Wrap(ErrInvalidElementDecl, "'>' expected")
	}
	p.read()

	for _, name := range subjects {
		p.dtd.registerElement(&ElementDecl{
			Name:             name,
			StartTagOptional: startOpt,
			EndTagOptional:   endOpt,
			Content:          content,
			Model:            model,
			Inclusions:       inclusions,
			Exclusions:       exclusions,
		})
	}
	return nil
}

// parseOmitFlags reads the two tag-omissibility flags when present.
// XML-style DTDs have none; in that case both tags are required.
func (p *dtdParser) parseOmitFlags() (startOpt, endOpt bool, err error) {
	ch, err := p.skipSpace(true)
	if err != nil {
		return false, false, err
	}
	if !isOmitFlag(ch, p.current.PeekNext()) {
		return false, false, nil
	}
	startOpt = ch == 'O' || ch == 'o'
	p.read()
	ch, err = p.skipSpace(true)
	if err != nil {
		return false, false, err
	}
	if !isOmitFlag(ch, p.current.PeekNext()) {
		return false, false, errors.Wrap(ErrInvalidElementDecl, "second omissibility flag expected")
	}
	endOpt = ch == 'O' || ch == 'o'
	p.read()
	return startOpt, endOpt, nil
}

// isOmitFlag distinguishes a '-' or 'O' flag from declared content: a
// flag is a single character followed by whitespace.
func isOmitFlag(ch, next rune) bool {
	if ch != '-' && ch != 'O' && ch != 'o' {
		return false
	}
	return isWhite(next) || next == EOFChar
}

func (p *dtdParser) parseGroup() (*ContentGroup, error) {
	p.read() // past '('
	g := &ContentGroup{}
	for {
		ch, err := p.skipSpace(true)
		if err != nil {
			return nil, err
		}
		var m GroupMember
		switch {
		case ch == '(':
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			m.Group = sub
		case ch == '#':
			p.read()
			m.Name = "#" + strings.ToUpper(p.scanName())
		default:
			name := p.scanName()
			if name == "" {
				return nil, errors.Errorf("content model member expected, got %q", string(ch))
			}
			m.Name = strings.ToUpper(name)
		}
		if occ := p.cur(); occ == '?' || occ == '*' || occ == '+' {
			m.Occurrence = occ
			p.read()
		}
		g.Members = append(g.Members, m)

		ch, err = p.skipSpace(true)
		if err != nil {
			return nil, err
		}
		switch ch {
		case '|', ',', '&':
			g.Connector = ch
			p.read()
		case ')':
			p.read()
			if occ := p.cur(); occ == '?' || occ == '*' || occ == '+' {
				g.Occurrence = occ
				p.read()
			}
			return g, nil
		default:
			return nil, errors.Errorf("unexpected %q in content model", string(ch))
		}
	}
}

func (p *dtdParser) parseAttListDecl() error {
	if _, err := p.skipSpace(true); err != nil {
		return err
	}
	subjects, err := p.parseNameGroup()
	if err != nil {
		return errors.Wrap(ErrInvalidAttListDecl, err.Error())
	}

	var defs []*AttDef
	for {
		ch, err := p.skipSpace(true)
		if err != nil {
			return err
		}
		if ch == '>' {
			p.read()
			break
		}
		if ch == EOFChar {
			return errors.Wrap(ErrInvalidAttListDecl, "unexpected end of input")
		}
		def, err := p.parseAttDef()
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}

	for _, subject := range subjects {
		decl := p.dtd.FindElement(subject)
		if decl == nil {
			// ATTLIST before (or without) the ELEMENT declaration
			decl = &ElementDecl{Name: subject, Content: AnyContent}
			p.dtd.registerElement(decl)
		}
		for _, def := range defs {
			decl.addAttribute(def)
		}
	}
	return nil
}

func (p *dtdParser) parseAttDef() (*AttDef, error) {
	name := p.scanName()
	if name == "" {
		return nil, errors.Wrapf(ErrInvalidAttListDecl, "attribute name expected at %q", string(p.cur()))
	}
	def := &AttDef{Name: strings.ToUpper(name)}

	ch, err := p.skipSpace(true)
	if err != nil {
		return nil, err
	}
	if ch == '(' {
		def.Type = "ENUM"
		def.Enum, err = p.parseParenNameGroup()
		if err != nil {
			return nil, err
		}
	} else {
		def.Type = strings.ToUpper(p.scanName())
		if def.Type == "NOTATION" {
			if _, err := p.skipSpace(true); err != nil {
				return nil, err
			}
			if _, err := p.parseParenNameGroup(); err != nil {
				return nil, err
			}
		}
	}

	ch, err = p.skipSpace(true)
	if err != nil {
		return nil, err
	}
	switch {
	case ch == '#':
		p.read()
		switch kw := strings.ToUpper(p.scanName()); kw {
		case "REQUIRED":
			def.Presence = PresenceRequired
		case "IMPLIED":
			def.Presence = PresenceImplied
		case "FIXED":
			def.Presence = PresenceFixed
			if _, err := p.skipSpace(true); err != nil {
				return nil, err
			}
			v, err := p.parseLiteralOrToken()
			if err != nil {
				return nil, err
			}
			def.Default = v
		default:
			return nil, errors.Wrapf(ErrInvalidAttListDecl, "unknown presence #%s", kw)
		}
	default:
		v, err := p.parseLiteralOrToken()
		if err != nil {
			return nil, err
		}
		def.Default = v
	}
	return def, nil
}

func (p *dtdParser) parseLiteralOrToken() (string, error) {
	ch := p.cur()
	if ch == '"' || ch == '\'' {
		v, ok := p.current.ScanLiteral(&p.sb, ch, nil, false)
		p.cur()
		if !ok {
			return "", errors.New("literal not terminated")
		}
		return v, nil
	}
	v := p.scanName()
	if v == "" {
		return "", errors.Errorf("value expected, got %q", string(ch))
	}
	return v, nil
}

func (p *dtdParser) parseEntityDecl() error {
	ch, err := p.skipSpace(false)
	if err != nil {
		return err
	}
	isParam := false
	if ch == '%' {
		isParam = true
		p.read()
		if _, err := p.skipSpace(false); err != nil {
			return err
		}
	}
	name := p.scanName()
	if name == "" {
		return errors.Wrap(ErrInvalidEntityDecl, "entity name expected")
	}

	decl := &EntityDecl{Name: name, IsParameter: isParam}

	ch, err = p.skipSpace(false)
	if err != nil {
		return err
	}
	switch {
	case ch == '"' || ch == '\'':
		v, ok := p.current.ScanLiteral(&p.sb, ch, nil, false)
		p.cur()
		if !ok {
			return errors.Wrap(ErrInvalidEntityDecl, "replacement text not terminated")
		}
		decl.Literal = v
	default:
		switch kw := strings.ToUpper(p.scanName()); kw {
		case "CDATA", "SDATA", "PI", "STARTTAG", "ENDTAG", "MD", "MS":
			if _, err := p.skipSpace(false); err != nil {
				return err
			}
			v, err := p.parseLiteralOrToken()
			if err != nil {
				return errors.Wrap(ErrInvalidEntityDecl, err.Error())
			}
			decl.Literal = v
		case "PUBLIC":
			if _, err := p.skipSpace(false); err != nil {
				return err
			}
			v, err := p.parseLiteralOrToken()
			if err != nil {
				return errors.Wrap(ErrInvalidEntityDecl, err.Error())
			}
			decl.PublicID = v
			if ch, err = p.skipSpace(false); err != nil {
				return err
			}
			if ch == '"' || ch == '\'' {
				v, err := p.parseLiteralOrToken()
				if err != nil {
					return errors.Wrap(ErrInvalidEntityDecl, err.Error())
				}
				decl.SystemID = v
			}
		case "SYSTEM":
			if _, err := p.skipSpace(false); err != nil {
				return err
			}
			v, err := p.parseLiteralOrToken()
			if err != nil {
				return errors.Wrap(ErrInvalidEntityDecl, err.Error())
			}
			decl.SystemID = v
		default:
			return errors.Wrapf(ErrInvalidEntityDecl, "unknown entity text keyword %q", kw)
		}
	}

	// trailing NDATA notation-name, then '>'
	for {
		ch, err = p.skipSpace(false)
		if err != nil {
			return err
		}
		if ch == '>' {
			p.read()
			break
		}
		if ch == EOFChar {
			return errors.Wrap(ErrInvalidEntityDecl, "unexpected end of input")
		}
		if isNameChar(ch) {
			p.scanName()
			continue
		}
		p.read()
	}

	p.dtd.registerEntity(decl)
	return nil
}
