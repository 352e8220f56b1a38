// Package encoding wraps the character set support in
// golang.org/x/text/encoding. It exists partly because package names
// like "unicode" clash with the stdlib, and partly so the rest of the
// module deals in one Load call instead of the x/text package zoo.
package encoding

import (
	"strings"

	enc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

var registry = map[string]enc.Encoding{
	"utf8":           unicode.UTF8,
	"utf-8":          unicode.UTF8,
	"utf16le":        unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16le":       unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be":        unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-16be":       unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"euc-jp":         japanese.EUCJP,
	"shift_jis":      japanese.ShiftJIS,
	"shift-jis":      japanese.ShiftJIS,
	"shiftjis":       japanese.ShiftJIS,
	"cp932":          japanese.ShiftJIS,
	"jis":            japanese.ISO2022JP,
	"iso-2022-jp":    japanese.ISO2022JP,
	"big5":           traditionalchinese.Big5,
	"euc-kr":         korean.EUCKR,
	"gb2312":         simplifiedchinese.HZGB2312,
	"hz-gb2312":      simplifiedchinese.HZGB2312,
	"cp437":          charmap.CodePage437,
	"cp866":          charmap.CodePage866,
	"iso-8859-2":     charmap.ISO8859_2,
	"iso-8859-3":     charmap.ISO8859_3,
	"iso-8859-4":     charmap.ISO8859_4,
	"iso-8859-5":     charmap.ISO8859_5,
	"iso-8859-6":     charmap.ISO8859_6,
	"iso-8859-7":     charmap.ISO8859_7,
	"iso-8859-8":     charmap.ISO8859_8,
	"iso-8859-10":    charmap.ISO8859_10,
	"iso-8859-13":    charmap.ISO8859_13,
	"iso-8859-14":    charmap.ISO8859_14,
	"iso-8859-15":    charmap.ISO8859_15,
	"iso-8859-16":    charmap.ISO8859_16,
	"koi8r":          charmap.KOI8R,
	"koi8-r":         charmap.KOI8R,
	"koi8u":          charmap.KOI8U,
	"koi8-u":         charmap.KOI8U,
	"macintosh":      charmap.Macintosh,
	"iso-8859-1":     charmap.Windows1252,
	"latin1":         charmap.Windows1252,
	"windows-1250":   charmap.Windows1250,
	"windows-1251":   charmap.Windows1251,
	"windows-1252":   charmap.Windows1252,
	"windows-1253":   charmap.Windows1253,
	"windows-1254":   charmap.Windows1254,
	"windows-1255":   charmap.Windows1255,
	"windows-1256":   charmap.Windows1256,
	"windows-1257":   charmap.Windows1257,
	"windows-1258":   charmap.Windows1258,
	"windows-874":    charmap.Windows874,
	"x-user-defined": charmap.XUserDefined,
}

// Load resolves a charset name (as it would appear in a BOM sniff or a
// meta/charset hint) to an x/text Encoding. It returns nil for names it
// does not know.
func Load(name string) enc.Encoding {
	key := strings.ToLower(strings.TrimSpace(name))
	if e, ok := registry[key]; ok {
		return e
	}
	// windows1252 and friends show up without the dash often enough
	if e, ok := registry[strings.Replace(key, "windows", "windows-", 1)]; ok {
		return e
	}
	return nil
}
