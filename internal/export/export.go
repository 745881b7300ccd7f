// Package export renders stored history as JSON, CSV or plain text.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/sloppy/nettools/internal/db"
)

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Write renders the full history in the given format.
func Write(database *db.DB, w io.Writer, format string, now time.Time) error {
	switch format {
	case FormatJSON:
		return HistoryJSON(database, w, now)
	case FormatCSV:
		return HistoryCSV(database, w)
	case FormatText:
		return HistoryText(database, w, "", now)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
