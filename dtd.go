package sgml

import "strings"

// DeclaredContent classifies what an element declaration says about
// its content.
type DeclaredContent int

const (
	// ModelContent means content is governed by a content-model group.
	ModelContent DeclaredContent = iota
	// EmptyContent means the element has no content and no end tag.
	EmptyContent
	// CDATAContent means content is raw character data, not parsed as
	// markup (script, style).
	CDATAContent
	// RCDATAContent is replaceable character data (entities expand,
	// markup does not).
	RCDATAContent
	// AnyContent permits any declared element.
	AnyContent
)

// DTD holds the declarations a document type provides: element
// declarations with their content models, attribute lists, and the
// entity tables. Element and attribute names are stored case-folded to
// upper; entity names keep their case. A DTD is immutable once loaded
// and may be shared across readers.
type DTD struct {
	name      string
	elements  map[string]*ElementDecl
	entities  map[string]*EntityDecl
	pentities map[string]*EntityDecl
}

func newDTD(name string) *DTD {
	return &DTD{
		name:      strings.ToUpper(name),
		elements:  map[string]*ElementDecl{},
		entities:  map[string]*EntityDecl{},
		pentities: map[string]*EntityDecl{},
	}
}

// Name returns the DTD's root element name, upper-cased.
func (d *DTD) Name() string {
	return d.name
}

// FindElement looks up an element declaration by name, folding case.
func (d *DTD) FindElement(name string) *ElementDecl {
	return d.elements[strings.ToUpper(name)]
}

// FindEntity looks up a general entity. Entity names are case
// sensitive (&Agrave; and &agrave; differ).
func (d *DTD) FindEntity(name string) (*EntityDecl, bool) {
	e, ok := d.entities[name]
	return e, ok
}

func (d *DTD) findParameterEntity(name string) (*EntityDecl, bool) {
	e, ok := d.pentities[name]
	return e, ok
}

// registerElement records decl under its name. The first
// declaration of a name wins, per SGML.
func (d *DTD) registerElement(decl *ElementDecl) {
	key := strings.ToUpper(decl.Name)
	if _, dup := d.elements[key]; !dup {
		d.elements[key] = decl
	}
}

func (d *DTD) registerEntity(decl *EntityDecl) {
	table := d.entities
	if decl.IsParameter {
		table = d.pentities
	}
	if _, dup := table[decl.Name]; !dup {
		table[decl.Name] = decl
	}
}

// ElementDecl is one <!ELEMENT> declaration.
type ElementDecl struct {
	Name             string
	StartTagOptional bool
	EndTagOptional   bool
	Content          DeclaredContent
	Model            *ContentGroup
	Inclusions       []string
	Exclusions       []string

	attnames []string
	attlist  map[string]*AttDef
}

// IsEmpty reports declared EMPTY content.
func (e *ElementDecl) IsEmpty() bool {
	return e.Content == EmptyContent
}

// IsCDATA reports declared CDATA content, which the reader scans raw.
func (e *ElementDecl) IsCDATA() bool {
	return e.Content == CDATAContent
}

// CanContain reports whether this element may directly contain name,
// honoring the declaration's inclusion and exclusion exceptions. It is
// a pure predicate; the reader's repair policy lives elsewhere.
func (e *ElementDecl) CanContain(name string, dtd *DTD) bool {
	name = strings.ToUpper(name)
	for _, x := range e.Exclusions {
		if x == name {
			return false
		}
	}
	for _, x := range e.Inclusions {
		if x == name {
			return true
		}
	}
	switch e.Content {
	case EmptyContent, CDATAContent, RCDATAContent:
		return false
	case AnyContent:
		return true
	}
	return e.Model != nil && e.Model.CanContain(name, dtd)
}

// FindAttribute looks up an attribute definition, folding case.
func (e *ElementDecl) FindAttribute(name string) *AttDef {
	if e.attlist == nil {
		return nil
	}
	return e.attlist[strings.ToUpper(name)]
}

func (e *ElementDecl) addAttribute(def *AttDef) {
	if e.attlist == nil {
		e.attlist = map[string]*AttDef{}
	}
	key := strings.ToUpper(def.Name)
	if _, dup := e.attlist[key]; dup {
		return
	}
	e.attlist[key] = def
	e.attnames = append(e.attnames, key)
}

// ContentGroup is a parenthesized content-model group: members joined
// by one connector, with an occurrence indicator.
type ContentGroup struct {
	Connector  rune // '|', ',', '&', or 0 for a single member
	Occurrence rune // '?', '*', '+', or 0
	Members    []GroupMember
}

// GroupMember is either an element name or a nested group.
type GroupMember struct {
	Name       string
	Group      *ContentGroup
	Occurrence rune
}

// CanContain reports whether name appears anywhere in the group. SGML
// containment for repair purposes ignores ordering: if the name is
// reachable the parent can hold it.
func (g *ContentGroup) CanContain(name string, dtd *DTD) bool {
	for _, m := range g.Members {
		if m.Group != nil {
			if m.Group.CanContain(name, dtd) {
				return true
			}
			continue
		}
		if m.Name == name {
			return true
		}
	}
	return false
}

// mixed reports whether the group admits character data.
func (g *ContentGroup) mixed() bool {
	for _, m := range g.Members {
		if m.Name == pcdataName {
			return true
		}
		if m.Group != nil && m.Group.mixed() {
			return true
		}
	}
	return false
}

const pcdataName = "#PCDATA"

// AttributePresence is the declared presence of an attribute.
type AttributePresence int

const (
	PresenceDefault AttributePresence = iota
	PresenceFixed
	PresenceRequired
	PresenceImplied
)

// AttDef is one attribute definition from an <!ATTLIST> declaration.
type AttDef struct {
	Name     string
	Type     string
	Enum     []string
	Presence AttributePresence
	Default  string
}

// EntityDecl is one <!ENTITY> declaration, general or parameter.
type EntityDecl struct {
	Name        string
	IsParameter bool
	PublicID    string
	SystemID    string
	Literal     string
}

// IsInternal reports whether the entity's replacement is literal text
// rather than an external resource.
func (e *EntityDecl) IsInternal() bool {
	return e.SystemID == ""
}
