package export

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sloppy/nettools/internal/db"
)

// Text sections accepted by HistoryText.
const (
	SectionScan   = "scan"
	SectionPing   = "ping"
	SectionSpeed  = "speed"
	SectionLookup = "lookup"
)

// HistoryText writes a readable summary of stored history. An empty section
// prints everything. Ages are relative to now.
func HistoryText(database *db.DB, w io.Writer, section string, now time.Time) error {
	h, err := database.LoadHistory(0)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	switch section {
	case "", SectionScan, SectionPing, SectionSpeed, SectionLookup:
	default:
		return fmt.Errorf("unknown history section %q", section)
	}
	show := func(s string) bool { return section == "" || section == s }

	fmt.Fprintf(w, "Exported: %s\n\n", now.UTC().Format("2006-01-02 15:04:05"))

	if show(SectionScan) {
		fmt.Fprintln(w, "Port scans:")
		if len(h.Scans) == 0 {
			fmt.Fprintln(w, "  No scans recorded.")
		} else {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  When\tHost\tMode\tOpen\tDuration")
			for _, s := range h.Scans {
				mode := s.Mode
				if s.PortRange != "" {
					mode += " " + s.PortRange
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%d/%d\t%dms\n", age(s.CreatedAt, now), s.Host, mode, s.OpenPorts, s.TotalPorts, s.DurationMs)
			}
			tw.Flush()
		}
		fmt.Fprintln(w, "")
	}

	if show(SectionPing) {
		fmt.Fprintln(w, "Ping tests:")
		if len(h.Pings) == 0 {
			fmt.Fprintln(w, "  No pings recorded.")
		} else {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  When\tHost\tSent\tLoss\tMin/Avg/Max")
			for _, p := range h.Pings {
				fmt.Fprintf(tw, "  %s\t%s\t%d\t%.1f%%\t%d/%d/%dms\n", age(p.CreatedAt, now), p.Host, p.Sent, p.LossPercentage, p.MinMs, p.AvgMs, p.MaxMs)
			}
			tw.Flush()
		}
		fmt.Fprintln(w, "")
	}

	if show(SectionSpeed) {
		fmt.Fprintln(w, "Speed tests:")
		if len(h.SpeedTests) == 0 {
			fmt.Fprintln(w, "  No speed tests recorded.")
		} else {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  When\tDownload\tUpload\tPing\tJitter")
			for _, t := range h.SpeedTests {
				fmt.Fprintf(tw, "  %s\t%s Mbps\t%s Mbps\t%dms\t%dms\n", age(t.CreatedAt, now), formatMbps(t.DownloadMbps), formatMbps(t.UploadMbps), t.PingMs, t.JitterMs)
			}
			tw.Flush()
		}
		fmt.Fprintln(w, "")
	}

	if show(SectionLookup) {
		fmt.Fprintln(w, "Lookups:")
		if len(h.Lookups) == 0 {
			fmt.Fprintln(w, "  No lookups recorded.")
		} else {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  When\tKind\tQuery\tResult")
			for _, l := range h.Lookups {
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", age(l.CreatedAt, now), l.Kind, l.Query, l.Summary)
			}
			tw.Flush()
		}
		fmt.Fprintln(w, "")
	}

	return nil
}

func age(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
