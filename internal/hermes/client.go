package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectReportGenerated is published once per conversion run.
const SubjectReportGenerated = "har2csv.report.generated"

// ReportEvent summarises a finished conversion run for downstream consumers.
type ReportEvent struct {
	RunID        string         `json:"run_id"`
	Files        int            `json:"files"`
	FailedFiles  int            `json:"failed_files"`
	Records      int            `json:"records"`
	PhoneSources map[string]int `json:"phone_sources"`
	Artifact     string         `json:"artifact,omitempty"`
	Timestamp    string         `json:"timestamp"`
}

// conn is the subset of *nats.Conn the client uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// flushTimeout bounds how long Close waits for buffered publishes.
const flushTimeout = 5 * time.Second

// Client publishes har2csv events to NATS.
type Client struct {
	conn   conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("har2csv"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// Publish marshals data as JSON onto subject. Delivery is buffered until the
// next flush or Close.
func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// PublishReport announces a finished conversion run.
func (c *Client) PublishReport(evt ReportEvent) error {
	return c.Publish(SubjectReportGenerated, evt)
}

// Close blocks until buffered publishes reach the server, or flushTimeout
// passes, and then closes the connection.
func (c *Client) Close() {
	if err := c.conn.FlushTimeout(flushTimeout); err != nil {
		c.logger.Warn("nats flush before close failed", "error", err)
	}
	c.conn.Close()
}
