// Package charset turns decoded QR payload bytes into text, following the
// ECI designators a symbol carries.
package charset

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/MeKo-Tech/qrscan/internal/qrcode"
)

// ErrUnknownECI is returned for designators with no known character set.
var ErrUnknownECI = errors.New("charset: unknown ECI designator")

// Charset is a named text encoding.
type Charset struct {
	Name     string
	Encoding encoding.Encoding
}

// Common charsets, also used when a segment has no ECI.
var (
	UTF8     = Charset{"UTF-8", unicode.UTF8}
	Latin1   = Charset{"ISO-8859-1", charmap.ISO8859_1}
	ShiftJIS = Charset{"Shift_JIS", japanese.ShiftJIS}
)

var eciCharsets = map[uint32]Charset{
	0:  {"CP437", charmap.CodePage437},
	1:  Latin1,
	2:  {"CP437", charmap.CodePage437},
	3:  Latin1,
	4:  {"ISO-8859-2", charmap.ISO8859_2},
	5:  {"ISO-8859-3", charmap.ISO8859_3},
	6:  {"ISO-8859-4", charmap.ISO8859_4},
	7:  {"ISO-8859-5", charmap.ISO8859_5},
	8:  {"ISO-8859-6", charmap.ISO8859_6},
	9:  {"ISO-8859-7", charmap.ISO8859_7},
	10: {"ISO-8859-8", charmap.ISO8859_8},
	11: {"ISO-8859-9", charmap.ISO8859_9},
	12: {"ISO-8859-10", charmap.ISO8859_10},
	13: {"Windows-874", charmap.Windows874},
	15: {"ISO-8859-13", charmap.ISO8859_13},
	16: {"ISO-8859-14", charmap.ISO8859_14},
	17: {"ISO-8859-15", charmap.ISO8859_15},
	18: {"ISO-8859-16", charmap.ISO8859_16},
	20: ShiftJIS,
	21: {"Windows-1250", charmap.Windows1250},
	22: {"Windows-1251", charmap.Windows1251},
	23: {"Windows-1252", charmap.Windows1252},
	24: {"Windows-1256", charmap.Windows1256},
	25: {"UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	26: UTF8,
	27: {"US-ASCII", charmap.Windows1252},
	28: {"Big5", traditionalchinese.Big5},
	29: {"GB18030", simplifiedchinese.GB18030},
	30: {"EUC-KR", korean.EUCKR},
}

// ForECI returns the charset for an ECI designator.
func ForECI(eci uint32) (Charset, error) {
	cs, ok := eciCharsets[eci]
	if !ok {
		return Charset{}, fmt.Errorf("%w: %d", ErrUnknownECI, eci)
	}
	return cs, nil
}

// Guess picks a charset for bytes that came without an ECI: Shift_JIS for
// kanji segments, UTF-8 when the bytes are valid UTF-8, ISO-8859-1 otherwise.
func Guess(b []byte, t qrcode.DataType) Charset {
	switch {
	case t == qrcode.DataTypeKanji:
		return ShiftJIS
	case utf8.Valid(b):
		return UTF8
	default:
		return Latin1
	}
}

// Decode converts b to a UTF-8 string.
func (c Charset) Decode(b []byte) (string, error) {
	if c.Encoding == unicode.UTF8 {
		return string(b), nil
	}
	out, err := c.Encoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("charset: decode %s: %w", c.Name, err)
	}
	return string(out), nil
}

// Text decodes the payload of d segment by segment. It returns the text and
// the name of the charset used for the last segment.
func Text(d *qrcode.Data) (string, string, error) {
	if len(d.Segments) == 0 {
		cs := Guess(d.Payload, d.DataType)
		if d.ECI != 0 {
			var err error
			if cs, err = ForECI(d.ECI); err != nil {
				return "", "", err
			}
		}
		s, err := cs.Decode(d.Payload)
		return s, cs.Name, err
	}

	var sb strings.Builder
	name := UTF8.Name
	for _, seg := range d.Segments {
		b := d.Payload[seg.Offset : seg.Offset+seg.Length]
		cs := Guess(b, seg.Type)
		if seg.ECI != 0 {
			var err error
			if cs, err = ForECI(seg.ECI); err != nil {
				return "", "", err
			}
		}
		s, err := cs.Decode(b)
		if err != nil {
			return "", "", err
		}
		sb.WriteString(s)
		name = cs.Name
	}
	return sb.String(), name, nil
}
