package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sloppy/nettools/internal/db"
)

// HistoryCSV writes one row per scanned port, ping sample, speed test and
// lookup, newest run first.
func HistoryCSV(database *db.DB, w io.Writer) error {
	h, err := Collect(database, time.Now())
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var rows [][]string
	for _, s := range h.Scans {
		for _, p := range s.Ports {
			rows = append(rows, []string{"scan", s.RunID, formatTime(s.CreatedAt), s.Host,
				strconv.Itoa(p.Port), p.Status, p.Service, p.Description})
		}
	}
	for _, p := range h.Pings {
		for _, s := range p.Samples {
			rows = append(rows, []string{"ping", p.RunID, formatTime(p.CreatedAt), p.Host,
				strconv.Itoa(s.Sequence), s.Status, strconv.Itoa(s.RoundTripMs), ""})
		}
	}
	for _, t := range h.SpeedTests {
		rows = append(rows, []string{"speed", t.RunID, formatTime(t.CreatedAt), t.ServerLabel,
			"", "complete", formatMbps(t.DownloadMbps) + "/" + formatMbps(t.UploadMbps),
			fmt.Sprintf("ping %dms jitter %dms", t.PingMs, t.JitterMs)})
	}
	for _, l := range h.Lookups {
		rows = append(rows, []string{"lookup", "", formatTime(l.CreatedAt), l.Query,
			l.Kind, "", "", l.Summary})
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func formatMbps(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func csvHeader() []string {
	return []string{
		"kind",
		"run_id",
		"created_at",
		"target",
		"item",
		"status",
		"value",
		"detail",
	}
}
