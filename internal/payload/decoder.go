// Package payload decodes response bodies whose wire format is not known in
// advance: plain JSON, JSON wrapped in base64, or bytes in an unknown charset.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/MikeSquared-Agency/har2csv/internal/charset"
)

// ErrUndecodable is returned when no strategy yields a usable JSON value.
var ErrUndecodable = errors.New("payload: undecodable body")

// Strategy names, reported in Result.Strategy.
const (
	StrategyJSON        = "json"
	StrategyJSONTrimmed = "json_trimmed"
	StrategyBase64      = "base64"
	StrategyBinary      = "binary"
)

// textEncodings is the order in which decoded bytes are interpreted as text.
var textEncodings = []charset.Encoding{
	charset.UTF8,
	charset.Latin1,
	charset.Windows1252,
	charset.ASCII,
}

// Body is a response body, either text or raw binary.
type Body struct {
	text   string
	raw    []byte
	binary bool
}

// Text wraps a textual response body.
func Text(s string) Body { return Body{text: s} }

// Binary wraps a raw byte response body.
func Binary(b []byte) Body { return Body{raw: b, binary: true} }

// IsBinary reports whether the body holds raw bytes rather than text.
func (b Body) IsBinary() bool { return b.binary }

func (b Body) empty() bool {
	if b.binary {
		return len(b.raw) == 0
	}
	return b.text == ""
}

// Strategy is one named attempt at turning a body into a JSON value.
type Strategy struct {
	Name   string
	Decode func(Body) (any, bool)
}

// Result is a decoded JSON value and the strategy that produced it.
type Result struct {
	Value    any
	Strategy string
}

// DefaultStrategies is the decoding cascade, tried in order.
var DefaultStrategies = []Strategy{
	{Name: StrategyJSON, Decode: decodeJSON},
	{Name: StrategyJSONTrimmed, Decode: decodeTrimmedObject},
	{Name: StrategyBase64, Decode: decodeBase64},
	{Name: StrategyBinary, Decode: decodeBinary},
}

// Decode runs DefaultStrategies against body.
func Decode(body Body) (Result, error) {
	return DecodeWith(DefaultStrategies, body)
}

// DecodeWith runs strategies in order and returns the first usable value.
// Empty JSON values (null, false, 0, "", [], {}) are treated as a failure
// since they cannot carry orders.
func DecodeWith(strategies []Strategy, body Body) (Result, error) {
	if body.empty() {
		return Result{}, ErrUndecodable
	}
	for _, s := range strategies {
		v, ok := s.Decode(body)
		if !ok {
			continue
		}
		if isEmptyValue(v) {
			break
		}
		return Result{Value: v, Strategy: s.Name}, nil
	}
	return Result{}, ErrUndecodable
}

func decodeJSON(b Body) (any, bool) {
	if b.binary {
		return nil, false
	}
	return parseJSON([]byte(b.text))
}

func decodeTrimmedObject(b Body) (any, bool) {
	if b.binary {
		return nil, false
	}
	trimmed := strings.TrimSpace(b.text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, false
	}
	return parseJSON([]byte(trimmed))
}

func decodeBase64(b Body) (any, bool) {
	if b.binary {
		return nil, false
	}
	raw, ok := decodeLenientBase64(b.text)
	if !ok {
		return nil, false
	}
	return parseUnderEncodings(raw)
}

func decodeBinary(b Body) (any, bool) {
	if !b.binary {
		return nil, false
	}
	return parseUnderEncodings(b.raw)
}

func parseUnderEncodings(raw []byte) (any, bool) {
	for _, enc := range textEncodings {
		text, err := enc.Decode(raw)
		if err != nil {
			continue
		}
		if v, ok := parseJSON([]byte(text)); ok {
			return v, true
		}
	}
	return nil, false
}

// parseJSON decodes exactly one JSON value, keeping numbers as json.Number so
// identifiers keep their digits.
func parseJSON(data []byte) (any, bool) {
	if !json.Valid(data) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
