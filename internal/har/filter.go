package har

import (
	"encoding/json"
	"strings"
)

// DefaultMarker identifies the order-search endpoint in a request URL.
const DefaultMarker = "orderSearch"

const jsonMimePrefix = "application/json"

// Exchange is one recorded request/response pair worth decoding.
type Exchange struct {
	URL      string
	MimeType string
	Text     string
	Encoding string // HAR content.encoding, e.g. "base64"; informational only
}

// Filter returns, in archive order, the exchanges whose request URL contains
// marker and whose response is non-empty JSON.
func Filter(doc *Document, marker string) []Exchange {
	if doc == nil {
		return nil
	}
	var out []Exchange
	for _, raw := range doc.entries {
		ex, ok := matchEntry(raw, marker)
		if !ok {
			continue
		}
		out = append(out, ex)
	}
	return out
}

// matchEntry reads request.url and response.content from one HAR entry.
// Entries whose fields have unexpected JSON types are skipped.
func matchEntry(raw json.RawMessage, marker string) (Exchange, bool) {
	entry, ok := object(raw)
	if !ok {
		return Exchange{}, false // not shaped like an entry
	}

	request, ok := object(entry["request"])
	if !ok {
		return Exchange{}, false
	}
	url, ok := stringField(request, "url")
	if !ok || !strings.Contains(url, marker) {
		return Exchange{}, false
	}

	response, ok := object(entry["response"])
	if !ok {
		return Exchange{}, false
	}
	content, ok := object(response["content"])
	if !ok {
		return Exchange{}, false
	}
	text, ok := stringField(content, "text")
	if !ok || text == "" {
		return Exchange{}, false
	}
	mime, ok := stringField(content, "mimeType")
	if !ok || !isJSONMime(mime) {
		return Exchange{}, false
	}
	encoding, _ := stringField(content, "encoding") // ignored unless a string

	return Exchange{
		URL:      url,
		MimeType: mime,
		Text:     text,
		Encoding: encoding,
	}, true
}

// stringField returns m[key] as a string. A missing or null member is "";
// any other non-string value is reported as not ok.
func stringField(m map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", true
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if s == nil {
		return "", true
	}
	return *s, true
}

func isJSONMime(mime string) bool {
	return len(mime) >= len(jsonMimePrefix) &&
		strings.EqualFold(mime[:len(jsonMimePrefix)], jsonMimePrefix)
}
