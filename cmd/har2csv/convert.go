package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/har2csv/internal/artifact"
	"github.com/MikeSquared-Agency/har2csv/internal/pipeline"
	"github.com/MikeSquared-Agency/har2csv/internal/report"
)

var (
	outDir    string
	gcsBucket string
	marker    string
	dryRun    bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.har> [file.har...]",
	Short: "Convert capture files into one CSV report",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&outDir, "out", "", "directory for the CSV report (default from config, then .)")
	convertCmd.Flags().StringVar(&gcsBucket, "gcs-bucket", "", "write the report to this Cloud Storage bucket instead")
	convertCmd.Flags().StringVar(&marker, "marker", "", "URL substring identifying order-search requests")
	convertCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the summary without writing a report")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources := make([]pipeline.Source, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read capture: %w", err)
		}
		sources = append(sources, pipeline.Source{Name: filepath.Base(path), Data: data})
	}

	runner, cleanup := newRunner(ctx, firstNonEmpty(marker, cfg.Marker))
	defer cleanup()

	sum, err := runner.Run(ctx, sources)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, pipeline.FormatFileDetails(sum.Files))

	if len(sum.Records) == 0 {
		fmt.Fprintln(out, "no order records found")
		return nil
	}
	if dryRun {
		fmt.Fprint(out, pipeline.FormatSummary(sum, ""))
		return nil
	}

	sink, closeSink, err := newSink(ctx)
	if err != nil {
		return err
	}
	defer closeSink()

	location, err := sink.Save(ctx, report.Filename(time.Now()), report.Serialize(sum.Records))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.Info("report written", "run_id", sum.RunID.String(), "location", location, "records", len(sum.Records))

	fmt.Fprint(out, pipeline.FormatSummary(sum, location))
	runner.Notify(ctx, sum, location)
	return nil
}

// newSink picks Cloud Storage when a bucket is configured, the local output
// directory otherwise.
func newSink(ctx context.Context) (artifact.Sink, func(), error) {
	bucket := firstNonEmpty(gcsBucket, cfg.GCSBucket)
	if bucket == "" {
		return artifact.DirSink{Dir: firstNonEmpty(outDir, cfg.OutputDir, ".")}, func() {}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create storage client: %w", err)
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close storage client", "error", err)
		}
	}
	return artifact.NewGCSSink(client, bucket, ""), closeClient, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
