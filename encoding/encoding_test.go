package encoding_test

import (
	"testing"

	"github.com/mindtouch/sgml/encoding"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	known := []string{
		"utf-8",
		"UTF-8",
		"utf16le",
		"ISO-8859-1",
		"latin1",
		"Shift_JIS",
		"windows-1252",
		"windows1252",
		" euc-jp ",
	}
	for _, name := range known {
		require.NotNil(t, encoding.Load(name), "Load should resolve %q", name)
	}

	require.Nil(t, encoding.Load("klingon-8"), "unknown charsets resolve to nil")
	require.Nil(t, encoding.Load(""))
}

func TestLatin1Decodes(t *testing.T) {
	e := encoding.Load("iso-8859-1")
	require.NotNil(t, e)

	out, err := e.NewDecoder().Bytes([]byte{0xA9, 0x20, 0xE9})
	require.NoError(t, err)
	require.Equal(t, "© é", string(out))
}
