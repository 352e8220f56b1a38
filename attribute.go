package sgml

import "strings"

// Attribute is one attribute of the current element. Records are
// pooled per frame and reused across parses; reset reinitializes a
// recycled record.
type Attribute struct {
	name       string
	literal    string
	hasLiteral bool
	quote      rune
	decl       *AttDef
}

func (a *Attribute) reset(name, value string, hasLiteral bool, quote rune) {
	a.name = name
	a.literal = value
	a.hasLiteral = hasLiteral
	a.quote = quote
	a.decl = nil
}

// Name returns the (case-normalized) attribute name.
func (a *Attribute) Name() string {
	return a.name
}

// Value returns the literal value when the input carried one, then the
// DTD default, then the attribute's own name (the HTML boolean
// attribute convention).
func (a *Attribute) Value() string {
	if a.hasLiteral {
		return a.literal
	}
	if a.decl != nil && a.decl.Default != "" {
		return a.decl.Default
	}
	return a.name
}

// IsDefault reports whether the value did not come from the input.
func (a *Attribute) IsDefault() bool {
	return !a.hasLiteral
}

// QuoteChar returns the quote character that delimited the value in
// the input: '"', '\'', or 0 when the value was unquoted or absent.
func (a *Attribute) QuoteChar() rune {
	return a.quote
}

func (a *Attribute) matches(name string, caseInsensitive bool) bool {
	if caseInsensitive {
		return strings.EqualFold(a.name, name)
	}
	return a.name == name
}
