package sgml

import (
	"io"
	"strings"
)

// Dumper streams a reader's events back out as XML text. It declares
// any namespace prefix the input left undeclared, so the output is
// namespace-well-formed even when the input was not.
type Dumper struct {
	// Indent enables pretty printing with the given unit (e.g. "  ").
	Indent string
}

// Dump drains the reader and writes the serialized stream to out.
func (d *Dumper) Dump(out io.Writer, r *Reader) error {
	w := newXMLWriter(out, d.Indent, r)
	for {
		ok, err := r.Read()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := w.writeEvent(); err != nil {
			return err
		}
	}
}

// ReadOuterXML serializes the current node and, for elements, its
// whole subtree. The reader ends up positioned on the subtree's last
// event.
func (r *Reader) ReadOuterXML() (string, error) {
	if r.state == stateAttr || r.state == stateAttrValue {
		r.MoveToElement()
	}
	var b strings.Builder
	w := newXMLWriter(&b, "", r)
	switch r.NodeType() {
	case NoneNode:
		return "", nil
	case ElementNode:
		start := r.Depth()
		if err := w.writeEvent(); err != nil {
			return "", err
		}
		if r.IsEmptyElement() {
			return b.String(), nil
		}
		for {
			ok, err := r.Read()
			if err != nil {
				return "", err
			}
			if !ok {
				break
			}
			if err := w.writeEvent(); err != nil {
				return "", err
			}
			if r.NodeType() == EndElementNode && r.Depth() == start {
				break
			}
		}
	default:
		if err := w.writeEvent(); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// ReadInnerXML serializes the content between the current element's
// start and end events. The reader ends up positioned on the element's
// end event.
func (r *Reader) ReadInnerXML() (string, error) {
	if r.state == stateAttr || r.state == stateAttrValue {
		r.MoveToElement()
	}
	if r.NodeType() != ElementNode {
		return r.Value(), nil
	}
	if r.IsEmptyElement() {
		return "", nil
	}
	start := r.Depth()
	var b strings.Builder
	w := newXMLWriter(&b, "", r)
	for {
		ok, err := r.Read()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		if r.NodeType() == EndElementNode && r.Depth() == start {
			break
		}
		if err := w.writeEvent(); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

type nsScope struct {
	name     string
	declared map[string]bool
}

type xmlWriter struct {
	out    io.Writer
	r      *Reader
	indent string
	scopes []nsScope
	inText bool
	wrote  bool
}

func newXMLWriter(out io.Writer, indent string, r *Reader) *xmlWriter {
	return &xmlWriter{out: out, indent: indent, r: r}
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;", "\n", "&#10;", "\r", "&#13;", "\t", "&#9;")
)

func (w *xmlWriter) write(s string) error {
	_, err := io.WriteString(w.out, s)
	w.wrote = true
	return err
}

func (w *xmlWriter) breakLine(depth int) error {
	if w.indent == "" || !w.wrote || w.inText {
		return nil
	}
	if err := w.write("\n"); err != nil {
		return err
	}
	return w.write(strings.Repeat(w.indent, depth))
}

func (w *xmlWriter) writeEvent() error {
	r := w.r
	switch r.NodeType() {
	case ElementNode:
		return w.writeElement()
	case EndElementNode:
		if len(w.scopes) > 0 {
			w.scopes = w.scopes[:len(w.scopes)-1]
		}
		if err := w.breakLine(r.Depth()); err != nil {
			return err
		}
		w.inText = false
		return w.write("</" + r.Name() + ">")
	case TextNode, WhitespaceNode:
		w.inText = true
		return w.write(textEscaper.Replace(r.Value()))
	case CDATANode:
		w.inText = true
		return w.write("<![CDATA[" + r.Value() + "]]>")
	case CommentNode:
		if err := w.breakLine(r.Depth()); err != nil {
			return err
		}
		return w.write("<!--" + r.Value() + "-->")
	case ProcessingInstructionNode:
		if err := w.breakLine(r.Depth()); err != nil {
			return err
		}
		if v := r.Value(); v != "" {
			return w.write("<?" + r.Name() + " " + v + "?>")
		}
		return w.write("<?" + r.Name() + "?>")
	case DocTypeNode:
		return w.writeDocType()
	}
	return nil
}

type attrOut struct {
	name  string
	value string
}

func (w *xmlWriter) writeElement() error {
	r := w.r
	name := r.Name()
	prefix, _ := splitName(name)

	var attrs []attrOut
	declared := map[string]bool{}
	if r.MoveToFirstAttribute() {
		for {
			an, av := r.Name(), r.Value()
			attrs = append(attrs, attrOut{an, av})
			ap, al := splitName(an)
			switch {
			case ap == "" && strings.EqualFold(al, "xmlns"):
				declared[""] = true
			case strings.EqualFold(ap, "xmlns"):
				declared[al] = true
			}
			if !r.MoveToNextAttribute() {
				break
			}
		}
		r.MoveToElement()
	}

	// declare any prefix the input never bound
	var extra []attrOut
	need := func(p string) {
		if p == "" || strings.EqualFold(p, "xml") || strings.EqualFold(p, "xmlns") {
			return
		}
		if declared[p] || w.declaredInScope(p) {
			return
		}
		extra = append(extra, attrOut{"xmlns:" + p, r.resolvePrefix(p)})
		declared[p] = true
	}
	need(prefix)
	for _, a := range attrs {
		if ap, _ := splitName(a.name); !strings.EqualFold(ap, "xmlns") {
			need(ap)
		}
	}

	if err := w.breakLine(r.Depth()); err != nil {
		return err
	}
	w.inText = false

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(name)
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.value))
		b.WriteByte('"')
	}
	for _, a := range extra {
		b.WriteByte(' ')
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.value))
		b.WriteByte('"')
	}
	if r.IsEmptyElement() {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
		w.scopes = append(w.scopes, nsScope{name: name, declared: declared})
	}
	return w.write(b.String())
}

func (w *xmlWriter) writeDocType() error {
	r := w.r
	var b strings.Builder
	b.WriteString("<!DOCTYPE ")
	b.WriteString(r.Name())
	if pub, ok := r.GetAttribute("PUBLIC"); ok {
		sys, _ := r.GetAttribute("SYSTEM")
		b.WriteString(` PUBLIC "` + pub + `" "` + sys + `"`)
	} else if sys, ok := r.GetAttribute("SYSTEM"); ok {
		b.WriteString(` SYSTEM "` + sys + `"`)
	}
	if subset := r.Value(); subset != "" {
		b.WriteString(" [" + subset + "]")
	}
	b.WriteByte('>')
	return w.write(b.String())
}

func (w *xmlWriter) declaredInScope(prefix string) bool {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if w.scopes[i].declared[prefix] {
			return true
		}
	}
	return false
}
