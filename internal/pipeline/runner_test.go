package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/har2csv/internal/har"
	"github.com/MikeSquared-Agency/har2csv/internal/hermes"
	"github.com/MikeSquared-Agency/har2csv/internal/orders"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type entry struct {
	url, mime, text string
}

// archive builds a capture file from the given exchanges.
func archive(t *testing.T, entries ...entry) []byte {
	t.Helper()
	list := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]any{
			"request": map[string]any{"method": "POST", "url": e.url},
			"response": map[string]any{
				"status":  200,
				"content": map[string]any{"mimeType": e.mime, "text": e.text},
			},
		})
	}
	data, err := json.Marshal(map[string]any{"log": map[string]any{"entries": list}})
	require.NoError(t, err)
	return data
}

const (
	searchURL = "https://shop.example.com/api/orderSearch"
	otherURL  = "https://shop.example.com/api/userInfo"
	aliceBody = `{"code":0,"orderList":[{"commonInfo":{"orderId":"A1","statusStr":"Done"},"buyerInfo":{"nickName":"Alice 13912345678"}}]}`
	bobBody   = `{"code":0,"orderList":[{"commonInfo":{"orderId":"B1"},"buyerInfo":{"phone":"13800000000"}},{"commonInfo":{"orderId":"B2"}}]}`
)

type fakePublisher struct {
	events []hermes.ReportEvent
	err    error
}

func (f *fakePublisher) PublishReport(evt hermes.ReportEvent) error {
	f.events = append(f.events, evt)
	return f.err
}

type fakePoster struct {
	messages []string
	threads  []string
	err      error
}

func (f *fakePoster) PostMessage(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, text)
	return "1700000000.000100", nil
}

func (f *fakePoster) PostThread(_ context.Context, threadTS, text string) error {
	f.threads = append(f.threads, threadTS+"|"+text)
	return nil
}

func TestProcessFile_ExtractsMatchingExchanges(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())

	data := archive(t,
		entry{searchURL, "application/json", aliceBody},
		entry{otherURL, "application/json", bobBody},
		entry{searchURL + "?page=2", "application/json", base64.StdEncoding.EncodeToString([]byte(bobBody))},
		entry{searchURL + "?page=3", "text/html", bobBody},
		entry{searchURL + "?page=4", "application/json", "not a payload at all"},
	)

	res := r.ProcessFile(Source{Name: "a.har", Data: data})

	require.NoError(t, res.Err)
	assert.Equal(t, "a.har", res.Name)
	assert.Equal(t, 5, res.Entries)
	assert.Equal(t, 3, res.Exchanges)
	assert.Equal(t, 1, res.Undecodable)
	require.Len(t, res.Records, 3)
	assert.Equal(t, []string{"A1", "B1", "B2"}, []string{
		res.Records[0].OrderID, res.Records[1].OrderID, res.Records[2].OrderID,
	})
	assert.Equal(t, "13912345678", res.Records[0].Phone)
	assert.Equal(t, "13800000000", res.Records[1].Phone)
	assert.Equal(t, "", res.Records[2].Phone)
	assert.Equal(t, 1, res.Tally[orders.SourceNickname])
	assert.Equal(t, 1, res.Tally[orders.SourceBuyerPhone])
}

func TestProcessFile_MarkerMissingFromURL(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())

	res := r.ProcessFile(Source{Name: "b.har", Data: archive(t, entry{otherURL, "application/json", aliceBody})})

	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, 0, res.Exchanges)
	assert.Empty(t, res.Records)
}

func TestProcessFile_CustomMarker(t *testing.T) {
	r := NewRunner(Config{Marker: "userInfo"}, nil, nil, discardLogger())

	res := r.ProcessFile(Source{Name: "c.har", Data: archive(t, entry{otherURL, "application/json", aliceBody})})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "A1", res.Records[0].OrderID)
}

func TestNewRunner_DefaultMarker(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())
	assert.Equal(t, har.DefaultMarker, r.cfg.Marker)
}

func TestProcessFile_Unreadable(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())

	res := r.ProcessFile(Source{Name: "broken.har", Data: []byte("{not json")})

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, har.ErrUnreadable)
	assert.Contains(t, res.Err.Error(), "broken.har")
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Tally.Total())
}

func TestRun_AggregatesInInputOrder(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())

	sources := []Source{
		{Name: "first.har", Data: archive(t, entry{searchURL, "application/json", bobBody})},
		{Name: "broken.har", Data: []byte("garbage")},
		{Name: "second.har", Data: archive(t, entry{searchURL, "application/json", aliceBody})},
	}

	sum, err := r.Run(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, sum.Files, 3)
	assert.Equal(t, "first.har", sum.Files[0].Name)
	assert.Equal(t, "broken.har", sum.Files[1].Name)
	assert.Equal(t, "second.har", sum.Files[2].Name)
	assert.Equal(t, 1, sum.FailedFiles())

	require.Len(t, sum.Records, 3)
	assert.Equal(t, "B1", sum.Records[0].OrderID)
	assert.Equal(t, "B2", sum.Records[1].OrderID)
	assert.Equal(t, "A1", sum.Records[2].OrderID)

	assert.Equal(t, 1, sum.Tally[orders.SourceBuyerPhone])
	assert.Equal(t, 1, sum.Tally[orders.SourceNickname])
	assert.Equal(t, 0, sum.Tally[orders.SourceRechargeData])
	assert.NotEqual(t, uuid.Nil, sum.RunID)
}

func TestRun_Empty(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())

	sum, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sum.Files)
	assert.Empty(t, sum.Records)
	assert.Equal(t, 0, sum.Tally.Total())
}

func TestRun_Cancelled(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx, []Source{{Name: "a.har", Data: archive(t)}})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Empty(t, sum.Files)
}

func TestNotify_PublishesAndPosts(t *testing.T) {
	pub := &fakePublisher{}
	poster := &fakePoster{}
	r := NewRunner(Config{}, pub, poster, discardLogger())

	sum, err := r.Run(context.Background(), []Source{
		{Name: "a.har", Data: archive(t, entry{searchURL, "application/json", aliceBody})},
		{Name: "b.har", Data: []byte("nope")},
	})
	require.NoError(t, err)

	r.Notify(context.Background(), sum, "/tmp/orders.csv")

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, sum.RunID.String(), evt.RunID)
	assert.Equal(t, 2, evt.Files)
	assert.Equal(t, 1, evt.FailedFiles)
	assert.Equal(t, 1, evt.Records)
	assert.Equal(t, "/tmp/orders.csv", evt.Artifact)
	assert.Equal(t, map[string]int{"recharge_data": 0, "buyer_phone": 0, "nickname": 1}, evt.PhoneSources)

	require.Len(t, poster.messages, 1)
	assert.Contains(t, poster.messages[0], "2 files (1 unreadable), 1 orders")
	require.Len(t, poster.threads, 1)
	assert.True(t, strings.HasPrefix(poster.threads[0], "1700000000.000100|"))
	assert.Contains(t, poster.threads[0], "b.har: unreadable")
}

func TestNotify_FailuresAreSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	poster := &fakePoster{err: errors.New("slack down")}
	r := NewRunner(Config{}, pub, poster, discardLogger())

	sum, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() { r.Notify(context.Background(), sum, "") })
	assert.Len(t, pub.events, 1)
	assert.Empty(t, poster.messages)
	assert.Empty(t, poster.threads)
}

func TestNotify_NothingConfigured(t *testing.T) {
	r := NewRunner(Config{}, nil, nil, discardLogger())
	sum, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() { r.Notify(context.Background(), sum, "") })
}

func TestFormatSummary(t *testing.T) {
	sum := &Summary{
		Duration: 1500 * time.Millisecond,
		Files: []FileResult{
			{Name: "a.har", Entries: 10, Exchanges: 2, Undecodable: 1, Records: make([]orders.Record, 3)},
			{Name: "b.har", Err: har.ErrUnreadable},
		},
		Records: make([]orders.Record, 3),
		Tally:   orders.Tally{orders.SourceRechargeData: 1, orders.SourceBuyerPhone: 0, orders.SourceNickname: 2},
	}

	text := FormatSummary(sum, "gs://reports/orders.csv")
	assert.Contains(t, text, "*Order Export Summary*")
	assert.Contains(t, text, "2 files (1 unreadable), 3 orders, 3 phone numbers")
	assert.Contains(t, text, "recharge_data: 1, buyer_phone: 0, nickname: 2")
	assert.Contains(t, text, "Artifact: gs://reports/orders.csv")
	assert.Contains(t, text, "1.5s")

	assert.NotContains(t, FormatSummary(sum, ""), "Artifact:")

	details := FormatFileDetails(sum.Files)
	assert.Contains(t, details, "a.har: 2/10 exchanges, 3 orders (1 undecodable)")
	assert.Contains(t, details, "b.har: unreadable")
}
