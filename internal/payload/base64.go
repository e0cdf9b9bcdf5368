package payload

import (
	"encoding/base64"
	"strings"
)

// decodeLenientBase64 decodes s as standard base64 after discarding every
// character outside the alphabet. Padding is optional.
func decodeLenientBase64(s string) ([]byte, bool) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
			return r
		}
		return -1
	}, s)

	// A single trailing symbol cannot encode a whole byte.
	if clean == "" || len(clean)%4 == 1 {
		return nil, false
	}

	out, err := base64.RawStdEncoding.DecodeString(clean)
	if err != nil {
		return nil, false
	}
	return out, true
}
