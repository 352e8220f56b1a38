package sgml

import "github.com/mindtouch/sgml/internal/stack"

// node is one reusable frame on the reader's element stack. A frame is
// either an open element scope or the transient record of the current
// non-element event (text, CDATA, comment, PI, doctype).
type node struct {
	typ     NodeType
	name    string
	value   string
	isEmpty bool

	space Space
	lang  string

	decl      *ElementDecl
	saved     readerState
	simulated bool

	attrs *stack.HighWater[Attribute]
}

func newNode() *node {
	return &node{attrs: stack.New[Attribute](4)}
}

// reset reinitializes a recycled frame. Scope fields (space, lang) are
// cleared here and inherited by the stack on push.
func (n *node) reset(typ NodeType, name, value string) {
	n.typ = typ
	n.name = name
	n.value = value
	n.isEmpty = false
	n.space = SpaceNotSet
	n.lang = ""
	n.decl = nil
	n.saved = stateMarkup
	n.simulated = false
	n.attrs.Clear()
}

// addAttribute appends an attribute unless one with the same name (per
// the configured case sensitivity) already exists, in which case it
// returns nil and the duplicate is dropped.
func (n *node) addAttribute(name, value string, hasLiteral bool, quote rune, caseInsensitive bool) *Attribute {
	if n.attributeIndex(name, caseInsensitive) >= 0 {
		return nil
	}
	a := n.attrs.Push(func() *Attribute { return &Attribute{} })
	a.reset(name, value, hasLiteral, quote)
	return a
}

func (n *node) removeAttribute(name string, caseInsensitive bool) {
	if i := n.attributeIndex(name, caseInsensitive); i >= 0 {
		n.attrs.RemoveAt(i)
	}
}

func (n *node) attributeCount() int {
	return n.attrs.Len()
}

func (n *node) attribute(i int) *Attribute {
	return n.attrs.Get(i)
}

func (n *node) attributeByName(name string, caseInsensitive bool) *Attribute {
	if i := n.attributeIndex(name, caseInsensitive); i >= 0 {
		return n.attrs.Get(i)
	}
	return nil
}

func (n *node) attributeIndex(name string, caseInsensitive bool) int {
	for i := 0; i < n.attrs.Len(); i++ {
		if n.attrs.Get(i).matches(name, caseInsensitive) {
			return i
		}
	}
	return -1
}
