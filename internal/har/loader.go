// Package har loads HTTP Archive captures and selects the exchanges that
// carry order-search responses.
package har

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/MikeSquared-Agency/har2csv/internal/charset"
)

// ErrUnreadable is returned by Load when no encoding yields a JSON document.
var ErrUnreadable = errors.New("har: unreadable archive")

// archiveEncodings is the order in which capture bytes are sniffed.
var archiveEncodings = []charset.Encoding{
	charset.UTF8,
	charset.UTF16,
	charset.Latin1,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a parsed capture archive. It only exists for the duration of
// one file's processing.
type Document struct {
	entries  []json.RawMessage
	Encoding string // encoding that produced the JSON text, or "raw"
}

// Load turns the raw bytes of a capture file into a Document. The archive is
// parsed once; entries are kept raw and decoded one by one by Filter.
func Load(data []byte) (*Document, error) {
	for _, enc := range archiveEncodings {
		text, err := enc.Decode(data)
		if err != nil {
			continue
		}
		if entries, ok := parseEntries([]byte(text)); ok {
			return &Document{entries: entries, Encoding: enc.Name}, nil
		}
	}

	// Browser exports are often UTF-8 with a signature, which no text
	// decoding above accepts as JSON.
	if entries, ok := parseEntries(bytes.TrimPrefix(data, utf8BOM)); ok {
		return &Document{entries: entries, Encoding: "raw"}, nil
	}

	return nil, ErrUnreadable
}

// EntryCount returns the number of recorded exchanges in the archive,
// regardless of whether they are relevant.
func (d *Document) EntryCount() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// parseEntries reports whether text is a JSON document and returns its
// log.entries list. Any JSON value is a readable document; one without that
// structure simply has no entries. Keys are matched exactly.
func parseEntries(text []byte) ([]json.RawMessage, bool) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(text, &root); err != nil {
		var typeErr *json.UnmarshalTypeError
		return nil, errors.As(err, &typeErr)
	}

	log, ok := object(root["log"])
	if !ok {
		return nil, true
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(log["entries"], &entries); err != nil {
		return nil, true
	}
	return entries, true
}

// object decodes raw as a JSON object keyed by exact member names.
func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if raw == nil {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
