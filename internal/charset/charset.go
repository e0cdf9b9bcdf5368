// Package charset decodes raw bytes into UTF-8 text under a named encoding,
// failing on any byte sequence the encoding does not define.
package charset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalid is returned when the input is not valid under the encoding.
var ErrInvalid = errors.New("invalid byte sequence")

// Encoding is a strict byte-to-text decoder.
type Encoding struct {
	Name   string
	decode func([]byte) (string, error)
}

// Decode converts b to UTF-8 text.
func (e Encoding) Decode(b []byte) (string, error) {
	s, err := e.decode(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", e.Name, err)
	}
	return s, nil
}

func (e Encoding) String() string { return e.Name }

var (
	UTF8 = Encoding{Name: "utf-8", decode: decodeUTF8}

	// UTF16 honours a byte order mark and assumes little-endian without one.
	UTF16 = Encoding{Name: "utf-16", decode: decodeUTF16}

	Latin1 = Encoding{Name: "latin-1", decode: func(b []byte) (string, error) {
		return decodeWith(charmap.ISO8859_1.NewDecoder(), b)
	}}

	Windows1252 = Encoding{Name: "cp1252", decode: decodeWindows1252}

	ASCII = Encoding{Name: "ascii", decode: decodeASCII}
)

func decodeUTF8(b []byte) (string, error) {
	out, _, err := transform.Bytes(encoding.UTF8Validator, b)
	if err != nil {
		return "", ErrInvalid
	}
	return string(out), nil
}

func decodeUTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd length %d", ErrInvalid, len(b))
	}
	if off, ok := surrogatesPaired(b); !ok {
		return "", fmt.Errorf("%w: unpaired surrogate at offset %d", ErrInvalid, off)
	}
	return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), b)
}

// surrogatesPaired walks the UTF-16 code units in the byte order the BOM
// selects (little-endian without one) and reports the offset of the first
// surrogate that is not part of a valid pair.
func surrogatesPaired(b []byte) (int, bool) {
	var order binary.ByteOrder = binary.LittleEndian
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		order = binary.BigEndian
	}

	for i := 0; i+1 < len(b); i += 2 {
		u := rune(order.Uint16(b[i:]))
		if !utf16.IsSurrogate(u) {
			continue
		}
		if i+3 >= len(b) {
			return i, false
		}
		if utf16.DecodeRune(u, rune(order.Uint16(b[i+2:]))) == utf8.RuneError {
			return i, false
		}
		i += 2
	}
	return 0, true
}

// Bytes 0x81, 0x8D, 0x8F, 0x90 and 0x9D are unassigned in Windows-1252.
func decodeWindows1252(b []byte) (string, error) {
	for i, c := range b {
		switch c {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return "", fmt.Errorf("%w: byte 0x%02X at offset %d", ErrInvalid, c, i)
		}
	}
	return decodeWith(charmap.Windows1252.NewDecoder(), b)
}

func decodeASCII(b []byte) (string, error) {
	for i, c := range b {
		if c >= utf8.RuneSelf {
			return "", fmt.Errorf("%w: byte 0x%02X at offset %d", ErrInvalid, c, i)
		}
	}
	return string(b), nil
}

func decodeWith(d *encoding.Decoder, b []byte) (string, error) {
	out, err := d.Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return string(out), nil
}
