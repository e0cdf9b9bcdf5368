// Package report renders extracted orders as a spreadsheet-friendly CSV.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/har2csv/internal/orders"
)

// Columns is the fixed header row. The phone column keeps its Chinese label.
var Columns = []string{"Order ID", "Buyer Nickname", "Status", "手机号"}

// Marker is prefixed to every Order ID. Spreadsheet applications render long
// digit strings in scientific notation and drop precision; a leading
// zero-width space makes them treat the cell as text. It is a display
// workaround, not part of the identifier: use StripMarker to recover the raw
// value.
const Marker = "\u200B"

var bom = []byte{0xEF, 0xBB, 0xBF}

const lineEnd = "\r\n"

// Serialize renders records as quote-all CSV, UTF-8 with a byte order mark.
// An empty input produces an empty output rather than a header-only file.
func Serialize(records []orders.Record) []byte {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	buf.Write(bom)
	writeRow(&buf, Columns)
	for _, r := range records {
		writeRow(&buf, []string{Marker + r.OrderID, r.BuyerNickname, r.Status, r.Phone})
	}
	return buf.Bytes()
}

// StripMarker removes the display marker from a serialized Order ID.
func StripMarker(orderID string) string {
	return strings.TrimPrefix(orderID, Marker)
}

// Filename is the suggested download name for a report generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("orders_%s.csv", t.Format("20060102_150405"))
}

func writeRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString(lineEnd)
}
