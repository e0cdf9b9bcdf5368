// Package pipeline drives the conversion of a batch of capture files into
// order records: load, filter, decode and extract, one file at a time.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/har2csv/internal/har"
	"github.com/MikeSquared-Agency/har2csv/internal/hermes"
	"github.com/MikeSquared-Agency/har2csv/internal/metrics"
	"github.com/MikeSquared-Agency/har2csv/internal/orders"
	"github.com/MikeSquared-Agency/har2csv/internal/payload"
)

// Config holds the runner configuration.
type Config struct {
	Marker string // request URL substring identifying order-search exchanges
}

// Publisher emits run events. *hermes.Client satisfies it.
type Publisher interface {
	PublishReport(evt hermes.ReportEvent) error
}

// Poster sends human-readable run summaries. *slack.Poster satisfies it.
type Poster interface {
	PostMessage(ctx context.Context, text string) (string, error)
	PostThread(ctx context.Context, threadTS, text string) error
}

// Runner processes batches of capture files.
type Runner struct {
	cfg       Config
	publisher Publisher
	poster    Poster
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates a runner. publisher and poster may be nil.
func NewRunner(cfg Config, publisher Publisher, poster Poster, logger *slog.Logger) *Runner {
	if cfg.Marker == "" {
		cfg.Marker = har.DefaultMarker
	}
	return &Runner{
		cfg:       cfg,
		publisher: publisher,
		poster:    poster,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes sources sequentially. A file that cannot be read is recorded
// in its FileResult and never stops the batch. Cancellation is only observed
// between files; the partial summary is returned alongside ctx.Err().
func (r *Runner) Run(ctx context.Context, sources []Source) (*Summary, error) {
	sum := &Summary{
		RunID:     uuid.New(),
		StartedAt: r.now(),
		Tally:     orders.NewTally(),
	}
	logger := r.logger.With("run_id", sum.RunID.String())
	logger.Info("conversion started", "files", len(sources))

	for _, src := range sources {
		select {
		case <-ctx.Done():
			sum.Duration = r.now().Sub(sum.StartedAt)
			logger.Info("conversion interrupted", "files_done", len(sum.Files))
			return sum, ctx.Err()
		default:
		}

		fr := r.ProcessFile(src)
		sum.Files = append(sum.Files, fr)
		sum.Records = append(sum.Records, fr.Records...)
		sum.Tally.Merge(fr.Tally)
	}

	sum.Duration = r.now().Sub(sum.StartedAt)
	metrics.RunDuration.Observe(sum.Duration.Seconds())

	logger.Info("conversion complete",
		"files", len(sum.Files),
		"failed_files", sum.FailedFiles(),
		"records", len(sum.Records),
		"phones", sum.Tally.Total(),
	)
	return sum, nil
}

// ProcessFile runs one capture file through the whole pipeline.
func (r *Runner) ProcessFile(src Source) FileResult {
	res := FileResult{Name: src.Name, Tally: orders.NewTally()}

	doc, err := har.Load(src.Data)
	if err != nil {
		res.Err = fmt.Errorf("load %s: %w", src.Name, err)
		metrics.FilesTotal.WithLabelValues("unreadable").Inc()
		r.logger.Warn("capture file unreadable", "file", src.Name, "bytes", len(src.Data))
		return res
	}
	metrics.FilesTotal.WithLabelValues("ok").Inc()

	res.Entries = doc.EntryCount()
	exchanges := har.Filter(doc, r.cfg.Marker)
	res.Exchanges = len(exchanges)
	metrics.ExchangesMatchedTotal.Add(float64(len(exchanges)))

	for i, ex := range exchanges {
		decoded, err := payload.Decode(payload.Text(ex.Text))
		if err != nil {
			res.Undecodable++
			metrics.PayloadsDecodedTotal.WithLabelValues("undecodable").Inc()
			r.logger.Debug("skipping undecodable exchange",
				"file", src.Name,
				"exchange", i,
				"url", ex.URL,
				"content_encoding", ex.Encoding,
			)
			continue
		}
		metrics.PayloadsDecodedTotal.WithLabelValues(decoded.Strategy).Inc()

		out := orders.Extract(decoded.Value)
		res.Records = append(res.Records, out.Records...)
		res.Tally.Merge(out.Tally)
	}

	metrics.RecordsExtractedTotal.Add(float64(len(res.Records)))
	for source, n := range res.Tally {
		if n > 0 {
			metrics.PhoneSourcesTotal.WithLabelValues(string(source)).Add(float64(n))
		}
	}

	r.logger.Info("file processed",
		"file", src.Name,
		"encoding", doc.Encoding,
		"entries", res.Entries,
		"exchanges", res.Exchanges,
		"undecodable", res.Undecodable,
		"records", len(res.Records),
	)
	return res
}
