package sgml

import "strings"

// NodeType reports the kind of the current event. During attribute
// traversal it is Attribute, and Text once ReadAttributeValue has
// positioned the reader on the value.
func (r *Reader) NodeType() NodeType {
	switch r.state {
	case stateAttr:
		return AttributeNode
	case stateAttrValue:
		return TextNode
	}
	return r.event
}

// Name returns the qualified name of the current node.
func (r *Reader) Name() string {
	switch r.state {
	case stateAttr:
		if a := r.currentAttribute(); a != nil {
			return a.Name()
		}
		return ""
	case stateAttrValue:
		return ""
	}
	if r.node == nil {
		return ""
	}
	return r.node.name
}

// LocalName returns the name with any namespace prefix removed.
func (r *Reader) LocalName() string {
	_, local := splitName(r.Name())
	return local
}

// Prefix returns the namespace prefix of the current name, if any.
func (r *Reader) Prefix() string {
	prefix, _ := splitName(r.Name())
	return prefix
}

// Value returns the text of the current node: character data for
// text-bearing events, the attribute value during attribute traversal,
// empty otherwise.
func (r *Reader) Value() string {
	switch r.state {
	case stateAttr, stateAttrValue:
		if a := r.currentAttribute(); a != nil {
			return a.Value()
		}
		return ""
	}
	if r.node == nil {
		return ""
	}
	switch r.event {
	case TextNode, WhitespaceNode, CDATANode, CommentNode, ProcessingInstructionNode, DocTypeNode:
		return r.node.value
	}
	return ""
}

// Depth reports the element nesting depth of the current event.
// Attribute traversal reports the owning element's depth; the
// attribute value pseudo-node reports one deeper.
func (r *Reader) Depth() int {
	if r.state == stateAttrValue {
		return r.depth + 1
	}
	return r.depth
}

// IsEmptyElement reports whether the current element will have no
// separate end event.
func (r *Reader) IsEmptyElement() bool {
	return r.event == ElementNode && r.node != nil && r.node.isEmpty
}

// QuoteChar returns the quote character of the current attribute's
// value as it appeared in the input, defaulting to '"'.
func (r *Reader) QuoteChar() rune {
	if r.state == stateAttr || r.state == stateAttrValue {
		if a := r.currentAttribute(); a != nil && a.QuoteChar() != 0 {
			return a.QuoteChar()
		}
	}
	return '"'
}

// XMLSpace returns the xml:space scope in effect at the current node.
func (r *Reader) XMLSpace() Space {
	if r.node == nil {
		return SpaceNotSet
	}
	return r.node.space
}

// XMLLang returns the xml:lang scope in effect at the current node.
func (r *Reader) XMLLang() string {
	if r.node == nil {
		return ""
	}
	return r.node.lang
}

// IsDefault reports whether the current attribute's value came from
// somewhere other than the input.
func (r *Reader) IsDefault() bool {
	if r.state == stateAttr || r.state == stateAttrValue {
		if a := r.currentAttribute(); a != nil {
			return a.IsDefault()
		}
	}
	return false
}

// BaseURI returns the resolution base of the entity currently being
// read.
func (r *Reader) BaseURI() string {
	if r.current != nil && r.current.ResolvedURI() != "" {
		return r.current.ResolvedURI()
	}
	return r.baseURI
}

// attrOwner returns the node whose attributes are traversable, if the
// current event has any.
func (r *Reader) attrOwner() *node {
	if r.node == nil {
		return nil
	}
	switch r.event {
	case ElementNode, DocTypeNode:
		return r.node
	}
	return nil
}

func (r *Reader) currentAttribute() *Attribute {
	o := r.attrOwner()
	if o == nil || r.apos < 0 {
		return nil
	}
	return o.attribute(r.apos)
}

// AttributeCount returns the number of attributes on the current
// element (duplicates already collapsed).
func (r *Reader) AttributeCount() int {
	if o := r.attrOwner(); o != nil {
		return o.attributeCount()
	}
	return 0
}

// GetAttribute returns the value of the named attribute.
func (r *Reader) GetAttribute(name string) (string, bool) {
	o := r.attrOwner()
	if o == nil {
		return "", false
	}
	if a := o.attributeByName(name, r.folding == FoldNone); a != nil {
		return a.Value(), true
	}
	return "", false
}

// GetAttributeByIndex returns the value of the attribute at i in
// source order.
func (r *Reader) GetAttributeByIndex(i int) (string, bool) {
	o := r.attrOwner()
	if o == nil {
		return "", false
	}
	if a := o.attribute(i); a != nil {
		return a.Value(), true
	}
	return "", false
}

// MoveToFirstAttribute shifts the reader onto the first attribute,
// saving the state to restore on MoveToElement.
func (r *Reader) MoveToFirstAttribute() bool {
	o := r.attrOwner()
	if o == nil || o.attributeCount() == 0 {
		return false
	}
	r.saveTraversalState()
	r.apos = 0
	r.state = stateAttr
	return true
}

// MoveToNextAttribute advances attribute traversal, starting it when
// the reader is still on the element.
func (r *Reader) MoveToNextAttribute() bool {
	if r.state != stateAttr && r.state != stateAttrValue {
		return r.MoveToFirstAttribute()
	}
	o := r.attrOwner()
	if o == nil || r.apos+1 >= o.attributeCount() {
		return false
	}
	r.apos++
	r.state = stateAttr
	return true
}

// MoveToAttribute positions the reader on the named attribute.
func (r *Reader) MoveToAttribute(name string) bool {
	o := r.attrOwner()
	if o == nil {
		return false
	}
	i := o.attributeIndex(name, r.folding == FoldNone)
	if i < 0 {
		return false
	}
	r.saveTraversalState()
	r.apos = i
	r.state = stateAttr
	return true
}

// MoveToAttributeIndex positions the reader on the attribute at i.
func (r *Reader) MoveToAttributeIndex(i int) bool {
	o := r.attrOwner()
	if o == nil || i < 0 || i >= o.attributeCount() {
		return false
	}
	r.saveTraversalState()
	r.apos = i
	r.state = stateAttr
	return true
}

// MoveToElement returns from attribute traversal to the owning
// element event.
func (r *Reader) MoveToElement() bool {
	if r.state != stateAttr && r.state != stateAttrValue {
		return false
	}
	r.state = r.node.saved
	r.apos = -1
	return true
}

// ReadAttributeValue moves from an attribute to its value pseudo-node,
// once per attribute.
func (r *Reader) ReadAttributeValue() bool {
	switch r.state {
	case stateAttr:
		r.state = stateAttrValue
		return true
	case stateAttrValue:
		return false
	}
	return false
}

func (r *Reader) saveTraversalState() {
	if r.state != stateAttr && r.state != stateAttrValue {
		r.node.saved = r.state
	}
}

// ReadString concatenates the character data of the current element's
// children, stopping at (and remaining positioned on) the first
// non-text event.
func (r *Reader) ReadString() (string, error) {
	if r.state == stateAttr || r.state == stateAttrValue {
		r.MoveToElement()
	}
	if r.event != ElementNode {
		return "", nil
	}
	if r.node.isEmpty {
		return "", nil
	}
	var b strings.Builder
	for {
		ok, err := r.Read()
		if err != nil {
			return b.String(), err
		}
		if !ok {
			return b.String(), nil
		}
		switch r.NodeType() {
		case TextNode, WhitespaceNode, CDATANode:
			b.WriteString(r.Value())
		default:
			return b.String(), nil
		}
	}
}
