package sgml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func literalEntity(t *testing.T, text string) *Entity {
	t.Helper()
	e := NewLiteralEntity("test", text)
	require.NoError(t, e.Open(nil, ""))
	return e
}

func TestReadChar(t *testing.T) {
	e := literalEntity(t, "ab")
	require.Equal(t, 'a', e.ReadChar())
	require.Equal(t, 'a', e.Char(), "Char does not advance")
	require.Equal(t, 'b', e.ReadChar())
	require.Equal(t, EOFChar, e.ReadChar())
	require.Equal(t, EOFChar, e.ReadChar(), "EOF is sticky")
}

func TestSkipWhitespace(t *testing.T) {
	e := literalEntity(t, " \t\r\n x")
	e.ReadChar()
	require.Equal(t, 'x', e.SkipWhitespace())
}

func TestScanToken(t *testing.T) {
	e := literalEntity(t, "hello>rest")
	e.ReadChar()
	var buf strings.Builder
	require.Equal(t, "hello", e.ScanToken(&buf, " \t\r\n>"))
	require.Equal(t, '>', e.Char(), "terminator is the current character")
}

func TestScanLiteral(t *testing.T) {
	var buf strings.Builder

	e := literalEntity(t, `"plain" x`)
	e.ReadChar()
	v, ok := e.ScanLiteral(&buf, '"', nil, false)
	require.True(t, ok)
	require.Equal(t, "plain", v)
	require.Equal(t, ' ', e.Char(), "closing quote consumed")

	// numeric character references expand inside literals
	e = literalEntity(t, `'a&#169;b'`)
	e.ReadChar()
	v, ok = e.ScanLiteral(&buf, '\'', nil, false)
	require.True(t, ok)
	require.Equal(t, "a©b", v)

	// named references go through the resolver
	resolve := func(name string) (string, bool) {
		if name == "amp" {
			return "&", true
		}
		return "", false
	}
	e = literalEntity(t, `"a&amp;b&nope;c"`)
	e.ReadChar()
	v, ok = e.ScanLiteral(&buf, '"', resolve, false)
	require.True(t, ok)
	require.Equal(t, "a&b&nope;c", v, "unknown references survive verbatim")
}

func TestScanLiteralRecovery(t *testing.T) {
	var buf strings.Builder

	// a runaway quote must not eat past the tag close
	e := literalEntity(t, `">ok</a>`)
	e.ReadChar()
	v, ok := e.ScanLiteral(&buf, '"', nil, true)
	require.False(t, ok)
	require.Equal(t, "", v)
	require.Equal(t, '>', e.Char(), "recovery leaves '>' current")

	// without recovery the scan runs to end of input
	e = literalEntity(t, `">ok`)
	e.ReadChar()
	v, ok = e.ScanLiteral(&buf, '"', nil, false)
	require.False(t, ok)
	require.Equal(t, ">ok", v)
}

func TestScanToEnd(t *testing.T) {
	var buf strings.Builder

	e := literalEntity(t, "a -- b -->tail")
	e.ReadChar()
	v, ok := e.ScanToEnd(&buf, "comment", "-->")
	require.True(t, ok)
	require.Equal(t, "a -- b ", v)
	require.Equal(t, 't', e.Char())

	// partial marker matches stay in the data
	e = literalEntity(t, "x%y%>z")
	e.ReadChar()
	v, ok = e.ScanToEnd(&buf, "ASP block", "%>")
	require.True(t, ok)
	require.Equal(t, "x%y", v)

	e = literalEntity(t, "never ends")
	e.ReadChar()
	v, ok = e.ScanToEnd(&buf, "comment", "-->")
	require.False(t, ok)
	require.Equal(t, "never ends", v)
}

func TestExpandCharEntity(t *testing.T) {
	tests := map[string]struct {
		out string
		ok  bool
	}{
		"&#169; ":      {"©", true},
		"&#xA9; ":      {"©", true},
		"&#x1F600; ":   {"\U0001F600", true},
		"&#38; ":       {"&", true},
		"&#; ":         {"&#;", false},
		"&#xZZ; ":      {"&#x", false},
		"&#99999999; ": {"&#99999999;", false},
	}
	for input, expect := range tests {
		e := literalEntity(t, input)
		e.ReadChar() // '&'
		e.ReadChar() // '#'
		out, ok := e.ExpandCharEntity()
		require.Equal(t, expect.ok, ok, "validity for %q", input)
		require.Equal(t, expect.out, out, "expansion of %q", input)
	}
}

func TestNestedEntities(t *testing.T) {
	parent := literalEntity(t, "after")
	parent.ReadChar()

	child := NewLiteralEntity("inner", "xy")
	require.NoError(t, child.Open(parent, ""))
	require.Same(t, parent, child.Parent())

	require.Equal(t, 'x', child.ReadChar())
	require.Equal(t, 'y', child.ReadChar())
	require.Equal(t, EOFChar, child.ReadChar())

	// LIFO: the parent resumes where it stopped
	require.Equal(t, 'a', parent.Char())
	require.Equal(t, 'f', parent.ReadChar())
}

func TestDecodeStream(t *testing.T) {
	// UTF-8 BOM is stripped
	out, err := decodeStream([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, "")
	require.NoError(t, err)
	require.Equal(t, "hi", string(out))

	// UTF-16LE BOM switches the decoder
	out, err = decodeStream([]byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}, "")
	require.NoError(t, err)
	require.Equal(t, "hi", string(out))

	// charset hints apply when there is no BOM
	out, err = decodeStream([]byte{0xE9}, "iso-8859-1")
	require.NoError(t, err)
	require.Equal(t, "é", string(out))

	_, err = decodeStream([]byte("x"), "klingon-8")
	require.Error(t, err)
}

func TestEntityPosition(t *testing.T) {
	e := literalEntity(t, "ab\ncd")
	for i := 0; i < 4; i++ {
		e.ReadChar()
	}
	require.Equal(t, 2, e.Line())
}
