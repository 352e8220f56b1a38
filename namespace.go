package sgml

import (
	"strconv"
	"strings"
)

// unknownNamespaces coins synthetic URIs for prefixes the input never
// declares, so the emitted stream stays namespace-well-formed. The
// registry lives and dies with its reader.
type unknownNamespaces struct {
	prefixes map[string]string
	count    int
}

func (u *unknownNamespaces) uriFor(prefix string) string {
	if uri, ok := u.prefixes[prefix]; ok {
		return uri
	}
	uri := UnknownNamespacePrefix
	if u.count > 0 {
		uri += strconv.Itoa(u.count)
	}
	u.count++
	if u.prefixes == nil {
		u.prefixes = map[string]string{}
	}
	u.prefixes[prefix] = uri
	return uri
}

func splitName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// NamespaceURI resolves the namespace of the current node by walking
// the open-element stack for xmlns declarations. Prefixes the input
// never declares resolve to a per-reader placeholder URI.
func (r *Reader) NamespaceURI() string {
	if r.state == stateAttr || r.state == stateAttrValue {
		a := r.currentAttribute()
		if a == nil {
			return ""
		}
		prefix, local := splitName(a.Name())
		switch {
		case prefix == "" && strings.EqualFold(local, "xmlns"):
			return XMLNSNamespaceURI
		case strings.EqualFold(prefix, "xmlns"):
			return XMLNSNamespaceURI
		case strings.EqualFold(prefix, "xml"):
			return XMLNamespaceURI
		case prefix == "":
			// unprefixed attributes live in no namespace
			return ""
		}
		return r.resolvePrefix(prefix)
	}

	if r.node == nil || (r.event != ElementNode && r.event != EndElementNode) {
		return ""
	}
	prefix, _ := splitName(r.node.name)
	switch {
	case strings.EqualFold(prefix, "xml"):
		return XMLNamespaceURI
	case strings.EqualFold(prefix, "xmlns"):
		return XMLNSNamespaceURI
	case prefix == "":
		// default namespace, or none declared
		uri, _ := r.LookupNamespace("")
		return uri
	}
	return r.resolvePrefix(prefix)
}

func (r *Reader) resolvePrefix(prefix string) string {
	if uri, ok := r.LookupNamespace(prefix); ok {
		return uri
	}
	return r.unknown.uriFor(prefix)
}

// LookupNamespace walks the open-element stack top-down for the xmlns
// declaration binding prefix (the default declaration when prefix is
// empty).
func (r *Reader) LookupNamespace(prefix string) (string, bool) {
	target := "xmlns"
	if prefix != "" {
		target = "xmlns:" + prefix
	}
	// the current frame may already be off the stack (end events)
	if r.node != nil && r.node.typ == ElementNode {
		if a := r.node.attributeByName(target, true); a != nil {
			return a.Value(), true
		}
	}
	for i := r.stack.depth() - 1; i > 0; i-- {
		f := r.stack.get(i)
		if f.typ != ElementNode {
			continue
		}
		if a := f.attributeByName(target, true); a != nil {
			return a.Value(), true
		}
	}
	return "", false
}
