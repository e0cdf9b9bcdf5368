package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/har2csv/internal/hermes"
	"github.com/MikeSquared-Agency/har2csv/internal/orders"
)

// Notify announces a finished run. artifact is where the CSV ended up and may
// be empty. Failures are logged and never returned.
func (r *Runner) Notify(ctx context.Context, sum *Summary, artifact string) {
	r.publishEvent(sum, artifact)
	r.postSummary(ctx, sum, artifact)
}

func (r *Runner) publishEvent(sum *Summary, artifact string) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishReport(NewReportEvent(sum, artifact)); err != nil {
		r.logger.Warn("failed to publish report event",
			"run_id", sum.RunID.String(),
			"error", err,
		)
	}
}

// postSummary posts the run summary to Slack with per-file details as a
// thread reply. If Slack is not configured, it logs the summary instead.
func (r *Runner) postSummary(ctx context.Context, sum *Summary, artifact string) {
	text := FormatSummary(sum, artifact)

	if r.poster == nil {
		r.logger.Info("conversion summary (no Slack configured)", "summary", text)
		return
	}

	ts, err := r.poster.PostMessage(ctx, text)
	if err != nil {
		r.logger.Warn("failed to post summary to Slack, logging instead",
			"error", err,
			"summary", text,
		)
		return
	}
	if len(sum.Files) == 0 {
		return
	}
	if err := r.poster.PostThread(ctx, ts, FormatFileDetails(sum.Files)); err != nil {
		r.logger.Warn("failed to post file details to Slack", "error", err)
	}
}

// NewReportEvent builds the event published for a finished run.
func NewReportEvent(sum *Summary, artifact string) hermes.ReportEvent {
	sources := make(map[string]int, len(sum.Tally))
	for _, src := range orders.PhoneSources {
		sources[string(src)] = sum.Tally[src]
	}
	return hermes.ReportEvent{
		RunID:        sum.RunID.String(),
		Files:        len(sum.Files),
		FailedFiles:  sum.FailedFiles(),
		Records:      len(sum.Records),
		PhoneSources: sources,
		Artifact:     artifact,
		Timestamp:    sum.StartedAt.UTC().Format(time.RFC3339),
	}
}

// FormatSummary renders a short Slack-flavoured summary of a run.
func FormatSummary(sum *Summary, artifact string) string {
	var sb strings.Builder
	sb.WriteString("*Order Export Summary*\n")
	fmt.Fprintf(&sb, "%d files (%d unreadable), %d orders, %d phone numbers\n",
		len(sum.Files), sum.FailedFiles(), len(sum.Records), sum.Tally.Total())

	parts := make([]string, 0, len(orders.PhoneSources))
	for _, src := range orders.PhoneSources {
		parts = append(parts, fmt.Sprintf("%s: %d", src, sum.Tally[src]))
	}
	fmt.Fprintf(&sb, "Phone sources: %s\n", strings.Join(parts, ", "))

	if artifact != "" {
		fmt.Fprintf(&sb, "Artifact: %s\n", artifact)
	}
	fmt.Fprintf(&sb, "Run %s in %s\n", sum.RunID, sum.Duration.Round(time.Millisecond))
	return sb.String()
}

// FormatFileDetails lists per-file counts, one line per file.
func FormatFileDetails(files []FileResult) string {
	var sb strings.Builder
	for _, f := range files {
		if f.Err != nil {
			fmt.Fprintf(&sb, "  - %s: unreadable\n", f.Name)
			continue
		}
		fmt.Fprintf(&sb, "  - %s: %d/%d exchanges, %d orders", f.Name, f.Exchanges, f.Entries, len(f.Records))
		if f.Undecodable > 0 {
			fmt.Fprintf(&sb, " (%d undecodable)", f.Undecodable)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
