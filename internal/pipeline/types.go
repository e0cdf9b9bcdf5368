package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/har2csv/internal/orders"
)

// Source is one uploaded capture file.
type Source struct {
	Name string
	Data []byte
}

// FileResult is the outcome of processing one capture file.
type FileResult struct {
	Name        string
	Entries     int // recorded exchanges in the archive
	Exchanges   int // exchanges that matched the marker and MIME filter
	Undecodable int // matched exchanges whose body could not be decoded
	Records     []orders.Record
	Tally       orders.Tally
	Err         error // set when the archive itself was unreadable
}

// Summary accumulates the results of a batch, in input order.
type Summary struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Files     []FileResult
	Records   []orders.Record
	Tally     orders.Tally
}

// FailedFiles counts files whose archive could not be read.
func (s *Summary) FailedFiles() int {
	n := 0
	for _, f := range s.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}
