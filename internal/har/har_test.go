package har

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArchive = `{
  "log": {
    "version": "1.2",
    "entries": [
      {
        "request": {"method": "POST", "url": "https://shop.example.com/api/orderSearch?page=1"},
        "response": {"status": 200, "content": {"mimeType": "application/json;charset=UTF-8", "text": "{\"code\":0}"}}
      },
      {
        "request": {"method": "GET", "url": "https://shop.example.com/static/app.js"},
        "response": {"status": 200, "content": {"mimeType": "application/json", "text": "{\"code\":0}"}}
      },
      {
        "request": {"method": "POST", "url": "https://shop.example.com/api/orderSearch?page=2"},
        "response": {"status": 200, "content": {"mimeType": "text/html", "text": "<html></html>"}}
      },
      {
        "request": {"method": "POST", "url": "https://shop.example.com/api/orderSearch?page=3"},
        "response": {"status": 200, "content": {"mimeType": "application/json", "text": ""}}
      },
      {
        "request": {"method": "POST", "url": "https://shop.example.com/api/orderSearch?page=4"},
        "response": {"status": 200, "content": {"text": "{\"code\":0}"}}
      },
      {
        "request": {"method": "POST", "url": "https://shop.example.com/api/orderSearch?page=5"},
        "response": {"status": 200}
      },
      {
        "request": {"method": "POST", "url": "https://shop.example.com/api/orderSearch?page=6"},
        "response": {"status": 200, "content": {"mimeType": "APPLICATION/JSON", "text": "eyJjb2RlIjowfQ==", "encoding": "base64"}}
      },
      "not an entry",
      {
        "request": {"method": "POST", "url": "https://shop.example.com/api/orderSearch?page=7"},
        "response": {"status": 200, "content": {"mimeType": 42, "text": "{}"}}
      }
    ]
  }
}`

func TestLoad_UTF8(t *testing.T) {
	doc, err := Load([]byte(sampleArchive))
	require.NoError(t, err)
	assert.Equal(t, "utf-8", doc.Encoding)
	assert.Equal(t, 9, doc.EntryCount())
}

func TestLoad_UTF8WithSignature(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleArchive)...)

	doc, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "raw", doc.Encoding)
	assert.Equal(t, 9, doc.EntryCount())
}

func TestLoad_UTF16(t *testing.T) {
	doc, err := Load(utf16LE(`{"log":{"entries":[]}}`, true))
	require.NoError(t, err)
	assert.Equal(t, "utf-16", doc.Encoding)
	assert.Equal(t, 0, doc.EntryCount())
}

func TestLoad_UTF16WithReplacementCharacter(t *testing.T) {
	archive := `{"log":{"entries":[{"request":{"url":"https://shop.example.com/api/orderSearch"},` +
		`"response":{"content":{"mimeType":"application/json","text":"{\"nickName\":\"bad ` + "\uFFFD" + ` char\"}"}}}]}}`

	doc, err := Load(utf16LE(archive, true))
	require.NoError(t, err)
	assert.Equal(t, "utf-16", doc.Encoding)

	got := Filter(doc, DefaultMarker)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "bad \uFFFD char")
}

func TestLoad_Latin1Fallback(t *testing.T) {
	// 0xE9 alone is invalid UTF-8 and the length is odd, so only Latin-1 applies.
	data := []byte(`{"log":{"entries":[]},"x":"caf` + "\xe9" + `"}`)

	doc, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "latin-1", doc.Encoding)
}

func TestLoad_Unreadable(t *testing.T) {
	cases := map[string][]byte{
		"Empty":     {},
		"NotJSON":   []byte("this is not a capture"),
		"Truncated": []byte(`{"log":{"entries":[`),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := Load(data)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrUnreadable)
		})
	}
}

func TestFilter_SelectsMatchingExchangesInOrder(t *testing.T) {
	doc, err := Load([]byte(sampleArchive))
	require.NoError(t, err)

	got := Filter(doc, DefaultMarker)

	require.Len(t, got, 2)
	assert.Equal(t, "https://shop.example.com/api/orderSearch?page=1", got[0].URL)
	assert.Equal(t, `{"code":0}`, got[0].Text)
	assert.Equal(t, "application/json;charset=UTF-8", got[0].MimeType)

	assert.Equal(t, "https://shop.example.com/api/orderSearch?page=6", got[1].URL)
	assert.Equal(t, "base64", got[1].Encoding)
}

func TestFilter_MissingStructure(t *testing.T) {
	cases := map[string]string{
		"NoLog":          `{"version":"1.2"}`,
		"NoEntries":      `{"log":{"version":"1.2"}}`,
		"NullLog":        `{"log":null}`,
		"EntriesNotList": `{"log":{"entries":{"a":1}}}`,
		"LogNotObject":   `{"log":"text"}`,
		"RootArray":      `[1,2,3]`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := Load([]byte(text))
			require.NoError(t, err)
			assert.Empty(t, Filter(doc, DefaultMarker))
		})
	}
}

func TestFilter_KeysAreCaseSensitive(t *testing.T) {
	cases := map[string]string{
		"Log":      `{"LOG":{"entries":[{"request":{"url":"/orderSearch"},"response":{"content":{"mimeType":"application/json","text":"{}"}}}]}}`,
		"Entries":  `{"log":{"Entries":[{"request":{"url":"/orderSearch"},"response":{"content":{"mimeType":"application/json","text":"{}"}}}]}}`,
		"URL":      `{"log":{"entries":[{"request":{"URL":"/orderSearch"},"response":{"content":{"mimeType":"application/json","text":"{}"}}}]}}`,
		"Request":  `{"log":{"entries":[{"Request":{"url":"/orderSearch"},"response":{"content":{"mimeType":"application/json","text":"{}"}}}]}}`,
		"Text":     `{"log":{"entries":[{"request":{"url":"/orderSearch"},"response":{"content":{"mimeType":"application/json","TEXT":"{}"}}}]}}`,
		"MimeType": `{"log":{"entries":[{"request":{"url":"/orderSearch"},"response":{"content":{"MimeType":"application/json","text":"{}"}}}]}}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := Load([]byte(text))
			require.NoError(t, err)
			assert.Empty(t, Filter(doc, DefaultMarker))
		})
	}

	doc, err := Load([]byte(`{"log":{"entries":[{"request":{"url":"/orderSearch"},"response":{"content":{"mimeType":"application/json","text":"{}"}}}]}}`))
	require.NoError(t, err)
	assert.Len(t, Filter(doc, DefaultMarker), 1)
}

func TestFilter_NullFields(t *testing.T) {
	doc, err := Load([]byte(`{"log":{"entries":[
		{"request":{"url":null},"response":{"content":{"mimeType":"application/json","text":"{}"}}},
		{"request":{"url":"/orderSearch"},"response":{"content":null}},
		{"request":{"url":"/orderSearch"},"response":{"content":{"mimeType":"application/json","text":"{}","encoding":null}}}
	]}}`))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.EntryCount())

	got := Filter(doc, DefaultMarker)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Encoding)
}

func TestFilter_CustomMarker(t *testing.T) {
	doc, err := Load([]byte(sampleArchive))
	require.NoError(t, err)

	got := Filter(doc, "app.js")
	require.Len(t, got, 1)
	assert.Equal(t, "https://shop.example.com/static/app.js", got[0].URL)
}

func TestFilter_NilDocument(t *testing.T) {
	assert.Empty(t, Filter(nil, DefaultMarker))
	assert.Equal(t, 0, (*Document)(nil).EntryCount())
}

func utf16LE(s string, bom bool) []byte {
	var out []byte
	if bom {
		out = append(out, 0xFF, 0xFE)
	}
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}
