package sgml_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/lestrrat-go/pdebug"
	"github.com/mindtouch/sgml"
	"github.com/stretchr/testify/require"
)

func htmlReader(input string, options ...sgml.ReaderOption) *sgml.Reader {
	opts := append([]sgml.ReaderOption{sgml.WithDocType("HTML")}, options...)
	return sgml.NewReader(strings.NewReader(input), opts...)
}

func parseHTML(t *testing.T, input string, options ...sgml.ReaderOption) string {
	t.Helper()
	r := htmlReader(input, options...)
	var b strings.Builder
	d := sgml.Dumper{}
	require.NoError(t, d.Dump(&b, r), "Dump should succeed for %q", input)
	return b.String()
}

type event struct {
	typ   sgml.NodeType
	name  string
	value string
	depth int
	empty bool
}

func collectEvents(t *testing.T, input string, options ...sgml.ReaderOption) []event {
	t.Helper()
	r := htmlReader(input, options...)
	var events []event
	for {
		ok, err := r.Read()
		require.NoError(t, err, "Read should not fail for %q", input)
		if !ok {
			break
		}
		events = append(events, event{
			typ:   r.NodeType(),
			name:  r.Name(),
			value: r.Value(),
			depth: r.Depth(),
			empty: r.IsEmptyElement(),
		})
	}
	return events
}

func TestRepairScenarios(t *testing.T) {
	scenarios := map[string]string{
		// quotes added, HTML wrapper synthesized
		`<p class=foo>x</p>`: `<html><p class="foo">x</p></html>`,
		// the DTD says p closes p
		`<p>a<p>b</p>`: `<html><p>a</p><p>b</p></html>`,
		// malformed quote: the attribute is dropped, the content kept
		`<a href="foo"bar">ok</a>`: `<html><a href="foo">ok</a></html>`,
		// CDATA-declared element content
		`<script>x<y></script>`: `<html><script><![CDATA[x<y]]></script></html>`,
		// attribute without a value defaults to its own name
		`<p foo>done</p>`: `<html><p foo="foo">done</p></html>`,
		// bare text is wrapped too
		`hello`: `<html>hello</html>`,
	}
	for input, expected := range scenarios {
		t.Logf("checking %q", input)
		require.Equal(t, expected, parseHTML(t, input), "repair of %q", input)
	}
}

func TestCommentRepair(t *testing.T) {
	events := collectEvents(t, `<p>x<!-- a -- b --></p>`)
	var comment *event
	for i := range events {
		if events[i].typ == sgml.CommentNode {
			comment = &events[i]
		}
	}
	require.NotNil(t, comment, "a comment event must be emitted")
	require.Equal(t, " a - b ", comment.value, "double dashes collapse")

	require.Equal(t,
		`<html><p>x<!-- a - b --></p></html>`,
		parseHTML(t, `<p>x<!-- a -- b --></p>`))

	// a trailing dash gets a guard space
	events = collectEvents(t, `<p>x<!--tricky--->`)
	for _, ev := range events {
		if ev.typ == sgml.CommentNode {
			require.True(t, strings.HasSuffix(ev.value, " "), "trailing dash is padded: %q", ev.value)
		}
	}
}

func TestEventStream(t *testing.T) {
	events := collectEvents(t, `<p class=foo>x</p>`)
	if pdebug.Enabled {
		pdebug.Dump(events)
	}
	expected := []event{
		{typ: sgml.ElementNode, name: "html", depth: 0},
		{typ: sgml.ElementNode, name: "p", depth: 1},
		{typ: sgml.TextNode, value: "x", depth: 2},
		{typ: sgml.EndElementNode, name: "p", depth: 1},
		{typ: sgml.EndElementNode, name: "html", depth: 0},
	}
	require.Equal(t, len(expected), len(events), "event count")
	for i, want := range expected {
		require.Equal(t, want.typ, events[i].typ, "event %d type", i)
		require.Equal(t, want.name, events[i].name, "event %d name", i)
		require.Equal(t, want.depth, events[i].depth, "event %d depth", i)
		if want.value != "" {
			require.Equal(t, want.value, events[i].value, "event %d value", i)
		}
	}
}

// Every start has a matching end at the same depth, and attribute
// names within one element are unique.
func TestEventStreamInvariants(t *testing.T) {
	inputs := []string{
		`<p>a<p>b<ul><li>1<li>2</ul>`,
		`<table><tr><td>a<td>b<tr><td>c</table>`,
		`<b><i>x</b>y`,
		`<dl><dt>t<dd>d<dt>t2</dl>`,
		`<div><script>if(a<b){}</script></div>`,
	}
	for _, input := range inputs {
		r := htmlReader(input)
		var depths []int
		for {
			ok, err := r.Read()
			require.NoError(t, err, "input %q", input)
			if !ok {
				break
			}
			switch r.NodeType() {
			case sgml.ElementNode:
				seen := map[string]bool{}
				for i := 0; i < r.AttributeCount(); i++ {
					ok := r.MoveToAttributeIndex(i)
					require.True(t, ok)
					require.False(t, seen[r.Name()], "duplicate attribute %q in %q", r.Name(), input)
					seen[r.Name()] = true
				}
				r.MoveToElement()
				if !r.IsEmptyElement() {
					depths = append(depths, r.Depth())
				}
			case sgml.EndElementNode:
				require.NotEmpty(t, depths, "unbalanced end in %q", input)
				require.Equal(t, depths[len(depths)-1], r.Depth(), "end depth matches start in %q", input)
				depths = depths[:len(depths)-1]
			}
		}
		require.Empty(t, depths, "all starts closed in %q", input)
	}
}

// The emitted stream must round-trip through a strict XML parser.
func TestOutputIsWellFormedXML(t *testing.T) {
	inputs := []string{
		`<p class=foo>x &amp; y</p>`,
		`<a href="foo"bar">ok</a>`,
		`<script>var x = "</b>"; if (a<b) {}</script>`,
		`<ul><li>1<li>2<li>3`,
		`<x:p ns:a="1">t</x:p>`,
		`<p>&bogus; &#xZZ; &#169;</p>`,
		`<p><!-- c -- c --><?php x?><![CDATA[raw]]></p>`,
		`<table><tr><td>a<td>b</table>`,
	}
	for _, input := range inputs {
		out := parseHTML(t, input)
		dec := xml.NewDecoder(strings.NewReader(out))
		for {
			_, err := dec.Token()
			if err != nil {
				require.Contains(t, err.Error(), "EOF", "output %q for input %q must be well-formed", out, input)
				break
			}
		}
	}
}

// HTML-mode output passed through the reader again is stable.
func TestIdempotentReparse(t *testing.T) {
	inputs := []string{
		`<p class=foo>x</p>`,
		`<p>a<p>b</p>`,
		`<script>x<y></script>`,
		`<ul><li>1<li>2</ul>`,
		`<p>&amp;&#169;</p>`,
	}
	for _, input := range inputs {
		once := parseHTML(t, input)
		twice := parseHTML(t, once)
		require.Equal(t, once, twice, "reparse of %q output", input)
	}
}

func TestAutoClose(t *testing.T) {
	require.Equal(t,
		`<html><ul><li>1</li><li>2</li></ul></html>`,
		parseHTML(t, `<ul><li>1<li>2</ul>`))

	require.Equal(t,
		`<html><dl><dt>t</dt><dd>d</dd></dl></html>`,
		parseHTML(t, `<dl><dt>t<dd>d</dl>`))

	require.Equal(t,
		`<html><table><tr><td>a</td><td>b</td></tr></table></html>`,
		parseHTML(t, `<table><tr><td>a<td>b</table>`))
}

func TestEndTagCascade(t *testing.T) {
	// incorrectly nested elements close in order
	require.Equal(t,
		`<html><b><i>x</i></b>y</html>`,
		parseHTML(t, `<b><i>x</b>y`))
}

func TestCaseMismatchedTags(t *testing.T) {
	require.Equal(t,
		`<html><P>x</P></html>`,
		parseHTML(t, `<P>x</p>`),
		"end tags match open elements case-insensitively")
}

func TestCaseFolding(t *testing.T) {
	require.Equal(t,
		`<HTML><P CLASS="x">t</P></HTML>`,
		parseHTML(t, `<p class=x>t</p>`, sgml.WithCaseFolding(sgml.FoldToUpper)))

	require.Equal(t,
		`<html><p class="X">t</p></html>`,
		parseHTML(t, `<P CLASS=X>t</P>`, sgml.WithCaseFolding(sgml.FoldToLower)),
		"values are never folded")
}

func TestSecondRootSuppressed(t *testing.T) {
	require.Equal(t,
		`<html><b>x</b></html>`,
		parseHTML(t, `<html><b>x</b></html><i>y</i>`))
}

func TestUnmatchedEndTag(t *testing.T) {
	require.Equal(t,
		`<html><p>ac</p></html>`,
		parseHTML(t, `<p>a</b>c</p>`))
}

func TestDuplicateAttributesDropped(t *testing.T) {
	require.Equal(t,
		`<html><p a="1">x</p></html>`,
		parseHTML(t, `<p a="1" a="2">x</p>`))

	// duplicates match case-insensitively when folding is off
	require.Equal(t,
		`<html><p a="1">x</p></html>`,
		parseHTML(t, `<p a="1" A="2">x</p>`))
}

func TestStrayPunctuationInTag(t *testing.T) {
	require.Equal(t,
		`<html><p a="1">x</p></html>`,
		parseHTML(t, `<p , a=1 ; >x</p>`))
}

func TestEntityExpansion(t *testing.T) {
	require.Equal(t,
		`<html><p>©©&amp;bogus; &amp;</p></html>`,
		parseHTML(t, `<p>&copy;&#xA9;&bogus; &amp;</p>`))

	// astral plane references survive
	require.Equal(t,
		`<html><p>😀</p></html>`,
		parseHTML(t, `<p>&#x1F600;</p>`))

	// broken numeric references keep their characters
	require.Equal(t,
		`<html><p>&amp;#; &amp;#12</p></html>`,
		parseHTML(t, `<p>&#; &#12</p>`))
}

func TestEntityInAttribute(t *testing.T) {
	require.Equal(t,
		`<html><a href="a&amp;b©">x</a></html>`,
		parseHTML(t, `<a href="a&amp;b&#169;">x</a>`))
}

func TestEmptyElements(t *testing.T) {
	require.Equal(t,
		`<html><p><br/>x<img src="y"/></p></html>`,
		parseHTML(t, `<p><br>x<img src=y /></p>`))

	events := collectEvents(t, `<p><br></p>`)
	var sawBr bool
	for _, ev := range events {
		if ev.typ == sgml.ElementNode && ev.name == "br" {
			sawBr = true
			require.True(t, ev.empty, "DTD EMPTY sets the empty-element flag")
		}
	}
	require.True(t, sawBr)
}

func TestWhitespaceHandling(t *testing.T) {
	const input = "<html> <p>x</p> </html>"

	require.Equal(t,
		`<html> <p>x</p> </html>`,
		parseHTML(t, input), "WhitespaceAll keeps whitespace")

	require.Equal(t,
		`<html><p>x</p></html>`,
		parseHTML(t, input, sgml.WithWhitespaceHandling(sgml.WhitespaceNone)))

	events := collectEvents(t, input, sgml.WithWhitespaceHandling(sgml.WhitespaceNone))
	for _, ev := range events {
		require.NotEqual(t, sgml.WhitespaceNode, ev.typ, "no whitespace events under WhitespaceNone")
	}
}

func TestSignificantWhitespace(t *testing.T) {
	const input = `<div xml:space="preserve"><pre> x </pre></div>`
	out := parseHTML(t, input, sgml.WithWhitespaceHandling(sgml.WhitespaceSignificant))
	require.Contains(t, out, "> x <", "preserved scope keeps whitespace")

	out = parseHTML(t, "<div> <p>x</p></div>", sgml.WithWhitespaceHandling(sgml.WhitespaceSignificant))
	require.Equal(t, `<html><div><p>x</p></div></html>`, out)
}

func TestDocTypeStrippedByDefault(t *testing.T) {
	const input = `<!DOCTYPE html><p>x</p>`
	events := collectEvents(t, input)
	for _, ev := range events {
		require.NotEqual(t, sgml.DocTypeNode, ev.typ)
	}
}

func TestDocTypeEvent(t *testing.T) {
	const input = `<!DOCTYPE html PUBLIC "-//W3C//DTD HTML 4.01//EN"><p>x</p>`
	r := sgml.NewReader(strings.NewReader(input), sgml.WithStripDocType(false))
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sgml.DocTypeNode, r.NodeType())
	require.Equal(t, "html", r.Name())
	pub, found := r.GetAttribute("PUBLIC")
	require.True(t, found)
	require.Equal(t, "-//W3C//DTD HTML 4.01//EN", pub)
	sys, found := r.GetAttribute("SYSTEM")
	require.True(t, found, "a PUBLIC id implies a SYSTEM literal, even empty")
	require.Equal(t, "", sys)
}

func TestXMLDeclarationDiscarded(t *testing.T) {
	require.Equal(t,
		`<html><p>x</p></html>`,
		parseHTML(t, `<?xml version="1.0" encoding="utf-8"?><p>x</p>`))
}

func TestProcessingInstruction(t *testing.T) {
	events := collectEvents(t, `<p><?php echo("x")?></p>`)
	var pi *event
	for i := range events {
		if events[i].typ == sgml.ProcessingInstructionNode {
			pi = &events[i]
		}
	}
	require.NotNil(t, pi)
	require.Equal(t, "php", pi.name)
	require.Equal(t, `echo("x")`, pi.value)
}

func TestASPBlock(t *testing.T) {
	events := collectEvents(t, `<p><% Response.Write("x") %></p>`)
	var cdata *event
	for i := range events {
		if events[i].typ == sgml.CDATANode {
			cdata = &events[i]
		}
	}
	require.NotNil(t, cdata, "ASP blocks surface as CDATA")
	require.Equal(t, ` Response.Write("x") `, cdata.value)
}

func TestConditionalBlocks(t *testing.T) {
	require.Equal(t,
		`<html><p>abc</p></html>`,
		parseHTML(t, `<p>a<![if !IE]>b<![endif]>c</p>`))

	require.Equal(t,
		`<html><p><![CDATA[x<y]]></p></html>`,
		parseHTML(t, `<p><![CDATA[x<y]]></p>`))
}

func TestScriptWithEmbeddedComment(t *testing.T) {
	events := collectEvents(t, `<script>a<!--c--></script>`)
	var kinds []sgml.NodeType
	for _, ev := range events {
		kinds = append(kinds, ev.typ)
	}
	require.Equal(t, []sgml.NodeType{
		sgml.ElementNode, // html
		sgml.ElementNode, // script
		sgml.CDATANode,   // "a"
		sgml.CommentNode, // "c"
		sgml.EndElementNode,
		sgml.EndElementNode,
	}, kinds)
}

func TestCDataGuardStripping(t *testing.T) {
	events := collectEvents(t, "<script>/*<![CDATA[*/var a=1;/*]]>*/</script>")
	for _, ev := range events {
		if ev.typ == sgml.CDATANode {
			require.NotContains(t, ev.value, "<![CDATA[")
			require.NotContains(t, ev.value, "]]>")
		}
	}
}

func TestInvalidElementNameDegradesToText(t *testing.T) {
	out := parseHTML(t, `<p>a<1bad>b</p>`)
	require.Equal(t, `<html><p>a&lt;1bad&gt;b</p></html>`, out)
}

func TestInvalidAttributeNameDropped(t *testing.T) {
	require.Equal(t,
		`<html><p ok="1">x</p></html>`,
		parseHTML(t, `<p ok=1 b@d=2>x</p>`))
}

func TestUnclosedCommentAtEOF(t *testing.T) {
	events := collectEvents(t, `<p>x<!-- never closed`)
	var comment bool
	for _, ev := range events {
		if ev.typ == sgml.CommentNode {
			comment = true
			require.Equal(t, " never closed", ev.value)
		}
	}
	require.True(t, comment, "what was read is still emitted")
}

func TestUnclosedCDataAtEOF(t *testing.T) {
	require.Equal(t,
		`<html><script><![CDATA[var x]]></script></html>`,
		parseHTML(t, `<script>var x`))
}

func TestAttributeTraversal(t *testing.T) {
	r := htmlReader(`<p a="1" b='2' c=3 d>x</p>`)

	ok, err := r.Read() // html
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "html", r.Name())

	ok, err = r.Read() // p
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p", r.Name())
	require.Equal(t, 1, r.Depth())
	require.Equal(t, 4, r.AttributeCount())

	v, found := r.GetAttribute("a")
	require.True(t, found)
	require.Equal(t, "1", v)

	require.True(t, r.MoveToFirstAttribute())
	require.Equal(t, sgml.AttributeNode, r.NodeType())
	require.Equal(t, "a", r.Name())
	require.Equal(t, "1", r.Value())
	require.Equal(t, 1, r.Depth(), "attribute depth equals the element's")
	require.Equal(t, '"', r.QuoteChar())

	require.True(t, r.ReadAttributeValue())
	require.Equal(t, sgml.TextNode, r.NodeType())
	require.Equal(t, "1", r.Value())
	require.Equal(t, 2, r.Depth(), "attribute value sits one deeper")
	require.False(t, r.ReadAttributeValue(), "only once per attribute")

	require.True(t, r.MoveToNextAttribute())
	require.Equal(t, "b", r.Name())
	require.Equal(t, '\'', r.QuoteChar())

	require.True(t, r.MoveToNextAttribute())
	require.Equal(t, "c", r.Name())
	require.Equal(t, '"', r.QuoteChar(), "unquoted values report the default quote")

	require.True(t, r.MoveToNextAttribute())
	require.Equal(t, "d", r.Name())
	require.Equal(t, "d", r.Value(), "valueless attribute defaults to its name")
	require.True(t, r.IsDefault())

	require.False(t, r.MoveToNextAttribute())

	require.True(t, r.MoveToAttribute("b"))
	require.Equal(t, "2", r.Value())

	require.True(t, r.MoveToElement())
	require.Equal(t, sgml.ElementNode, r.NodeType())
	require.Equal(t, "p", r.Name())

	// reading from attribute state resumes at the element's content
	require.True(t, r.MoveToFirstAttribute())
	ok, err = r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sgml.TextNode, r.NodeType())
	require.Equal(t, "x", r.Value())
}

func TestDTDDefaultsOnAttributes(t *testing.T) {
	r := htmlReader(`<form action="/x" method>s</form>`)
	for {
		ok, err := r.Read()
		require.NoError(t, err)
		require.True(t, ok)
		if r.NodeType() == sgml.ElementNode && r.Name() == "form" {
			break
		}
	}
	v, found := r.GetAttribute("method")
	require.True(t, found)
	require.Equal(t, "GET", v, "the DTD default wins over the name convention")
}

func TestXMLSpaceAndLang(t *testing.T) {
	r := htmlReader(`<div xml:space="preserve" xml:lang="en"><p>x</p></div>`)
	var sawP bool
	for {
		ok, err := r.Read()
		require.NoError(t, err)
		if !ok {
			break
		}
		if r.NodeType() == sgml.ElementNode && r.Name() == "p" {
			sawP = true
			require.Equal(t, sgml.SpacePreserve, r.XMLSpace(), "xml:space inherits")
			require.Equal(t, "en", r.XMLLang(), "xml:lang inherits")
		}
	}
	require.True(t, sawP)
}

func TestReadString(t *testing.T) {
	r := htmlReader(`<p>a&amp;b<b>c</b></p>`)
	for {
		ok, err := r.Read()
		require.NoError(t, err)
		require.True(t, ok)
		if r.NodeType() == sgml.ElementNode && r.Name() == "p" {
			break
		}
	}
	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "a&b", s)
	require.Equal(t, sgml.ElementNode, r.NodeType())
	require.Equal(t, "b", r.Name(), "positioned on the event that ended the run")
}

func TestReadInnerOuterXML(t *testing.T) {
	r := htmlReader(`<div><p a=1>x<b>y</b></p><p>tail</p></div>`)
	for {
		ok, err := r.Read()
		require.NoError(t, err)
		require.True(t, ok)
		if r.NodeType() == sgml.ElementNode && r.Name() == "p" {
			break
		}
	}

	inner, err := r.ReadInnerXML()
	require.NoError(t, err)
	require.Equal(t, `x<b>y</b>`, inner)

	// the reader sits on the end event; the sibling comes next
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sgml.ElementNode, r.NodeType())
	require.Equal(t, "p", r.Name())

	outer, err := r.ReadOuterXML()
	require.NoError(t, err)
	require.Equal(t, `<p>tail</p>`, outer)
}

func TestIgnoreDTD(t *testing.T) {
	r := htmlReader(`<p>a`, sgml.WithIgnoreDTD(true))
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, r.DTD(), "IgnoreDTD suppresses the built-in HTML DTD")
	require.Equal(t, "html", r.Name(), "the wrapper is still synthesized")

	// without a DTD, p does not close p
	out := parseHTML(t, `<p>a<p>b`, sgml.WithIgnoreDTD(true))
	require.Equal(t, `<html><p>a<p>b</p></p></html>`, out)
}

func TestMissingInput(t *testing.T) {
	r := sgml.NewReader(nil)
	_, err := r.Read()
	require.ErrorIs(t, err, sgml.ErrMissingInput)
}

func TestDTDMismatchIsFatal(t *testing.T) {
	dtd, err := sgml.HTMLDTD()
	require.NoError(t, err)
	r := sgml.NewReader(strings.NewReader(`<x/>`),
		sgml.WithDocType("FOO"), sgml.WithDTD(dtd))
	_, err = r.Read()
	require.ErrorIs(t, err, sgml.ErrDTDMismatch)
}

func TestCloseStopsReading(t *testing.T) {
	r := htmlReader(`<p>x</p>`)
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, r.Close())
	_, err = r.Read()
	require.ErrorIs(t, err, sgml.ErrReaderClosed)
}

func TestBodyIsNeverAutoClosed(t *testing.T) {
	// DIV is not legal in UL, but UL's end tag is required, so the walk
	// stops at UL and BODY is never closed
	out := parseHTML(t, `<body><ul><div>x</div></ul></body>`)
	require.Contains(t, out, "<body>")
	require.Contains(t, out, "</body>")
}
