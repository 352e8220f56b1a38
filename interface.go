// Package sgml reads SGML-family markup, most importantly real-world
// HTML, and presents it as a stream of well-formed XML events. The
// Reader repairs ill-formed input as it goes: unquoted or missing
// attribute values, duplicate attributes, case-mismatched tags, end
// tags the DTD lets an author omit, stray characters, broken entities
// and incorrectly nested elements.
package sgml

const Version = "1.0.0"

// NodeType identifies the kind of event the reader is positioned on.
type NodeType int

const (
	NoneNode NodeType = iota
	DocumentNode
	ElementNode
	EndElementNode
	AttributeNode
	TextNode
	CDATANode
	CommentNode
	ProcessingInstructionNode
	DocTypeNode
	WhitespaceNode
)

func (t NodeType) String() string {
	switch t {
	case NoneNode:
		return "None"
	case DocumentNode:
		return "Document"
	case ElementNode:
		return "Element"
	case EndElementNode:
		return "EndElement"
	case AttributeNode:
		return "Attribute"
	case TextNode:
		return "Text"
	case CDATANode:
		return "CDATA"
	case CommentNode:
		return "Comment"
	case ProcessingInstructionNode:
		return "ProcessingInstruction"
	case DocTypeNode:
		return "DocumentType"
	case WhitespaceNode:
		return "Whitespace"
	default:
		return "Unknown"
	}
}

// CaseFolding controls how scanned element and attribute names are
// normalized. With FoldNone, end tags are matched against open elements
// case-insensitively; with folding active the match is exact.
type CaseFolding int

const (
	FoldNone CaseFolding = iota
	FoldToUpper
	FoldToLower
)

// WhitespaceHandling controls which whitespace-only text events are
// reported.
type WhitespaceHandling int

const (
	// WhitespaceAll reports every whitespace run.
	WhitespaceAll WhitespaceHandling = iota
	// WhitespaceSignificant reports whitespace only inside an
	// xml:space='preserve' scope.
	WhitespaceSignificant
	// WhitespaceNone suppresses whitespace-only events entirely.
	WhitespaceNone
)

// Space is the xml:space scope of the current node.
type Space int

const (
	SpaceNotSet Space = iota
	SpaceDefault
	SpacePreserve
)

// readerState is the pull reader's state machine position between
// calls to Read.
type readerState int

const (
	stateInitial readerState = iota
	stateMarkup
	stateEndTag
	stateAttr
	stateAttrValue
	stateText
	statePartialTag
	stateAutoClose
	stateCDATA
	statePartialText
	statePseudoStartTag
	stateEOF
)

func (s readerState) String() string {
	switch s {
	case stateInitial:
		return "Initial"
	case stateMarkup:
		return "Markup"
	case stateEndTag:
		return "EndTag"
	case stateAttr:
		return "Attr"
	case stateAttrValue:
		return "AttrValue"
	case stateText:
		return "Text"
	case statePartialTag:
		return "PartialTag"
	case stateAutoClose:
		return "AutoClose"
	case stateCDATA:
		return "CData"
	case statePartialText:
		return "PartialText"
	case statePseudoStartTag:
		return "PseudoStartTag"
	case stateEOF:
		return "Eof"
	default:
		return "Unknown"
	}
}

const (
	// XMLNamespaceURI is the reserved namespace bound to the xml prefix.
	XMLNamespaceURI = "http://www.w3.org/XML/1998/namespace"
	// XMLNSNamespaceURI is the reserved namespace bound to the xmlns
	// prefix.
	XMLNSNamespaceURI = "http://www.w3.org/2000/xmlns/"
	// UnknownNamespacePrefix is the base of the synthetic URIs coined
	// for prefixes the input never declares.
	UnknownNamespacePrefix = "#unknown"
)

// MaxNameLength is the longest start-tag name the reader accepts. The
// name is checked after it has been scanned; a longer one is the fatal
// ErrNameTooLong.
const MaxNameLength = 50000
