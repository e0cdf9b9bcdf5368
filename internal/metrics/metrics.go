package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for conversion runs.
var (
	FilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "har2csv_files_total",
			Help: "Capture files processed, by result (ok, unreadable)",
		},
		[]string{"result"},
	)

	ExchangesMatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "har2csv_exchanges_matched_total",
			Help: "Order-search exchanges selected from capture files",
		},
	)

	PayloadsDecodedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "har2csv_payloads_decoded_total",
			Help: "Response payloads by the decoding strategy that succeeded, or undecodable",
		},
		[]string{"strategy"},
	)

	RecordsExtractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "har2csv_records_extracted_total",
			Help: "Order records extracted",
		},
	)

	PhoneSourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "har2csv_phone_sources_total",
			Help: "Resolved phone numbers by fallback source",
		},
		[]string{"source"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "har2csv_run_duration_seconds",
			Help:    "Duration of a conversion run",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all conversion metrics with reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		FilesTotal,
		ExchangesMatchedTotal,
		PayloadsDecodedTotal,
		RecordsExtractedTotal,
		PhoneSourcesTotal,
		RunDuration,
	)
}
