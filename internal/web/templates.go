package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/ping"
	"github.com/sloppy/nettools/internal/portscan"
	"github.com/sloppy/nettools/internal/reference"
	"github.com/sloppy/nettools/internal/runs"
	"github.com/sloppy/nettools/internal/speedtest"
	"github.com/sloppy/nettools/internal/validate"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	renderStatus(w, r, http.StatusOK, component)
}

func renderStatus(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// pageWriter keeps the first write error so page bodies read top to bottom.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *pageWriter) printf(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format, args...)
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

func page(title string, refresh int, fn func(p *pageWriter)) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		fn(p)
		return p.err
	})
	return layout(title, refresh, body)
}

// layout wraps body in the shared shell. A positive refresh adds a meta
// refresh so live runs update without scripts.
func layout(title string, refresh int, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!doctype html><html lang=\"en\"><head>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta charset=\"utf-8\">"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"); err != nil {
			return err
		}
		if refresh > 0 {
			if _, err := fmt.Fprintf(w, "<meta http-equiv=\"refresh\" content=\"%d\">", refresh); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "<title>%s</title>", html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, layoutStyles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<main class=\"shell\">"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<div class=\"page-actions\"><a class=\"back-link\" href=\"/\">All tools</a><a class=\"back-link\" href=\"/history\">History</a></div>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</main></body></html>"); err != nil {
			return err
		}
		return nil
	})
}

func header(p *pageWriter, eyebrow, title, subhead string) {
	p.printf("<header class=\"page-header\"><p class=\"eyebrow\">%s</p><h1>%s</h1><p class=\"subhead\">%s</p></header>",
		esc(eyebrow), esc(title), esc(subhead))
}

func errorLine(p *pageWriter, err error) {
	if err != nil {
		p.printf("<p class=\"error\">%s</p>", esc(err.Error()))
	}
}

func badge(class, label string) string {
	return fmt.Sprintf("<span class=\"badge badge-%s\">%s</span>", esc(strings.ToLower(class)), esc(label))
}

func stat(p *pageWriter, label, value string) {
	p.printf("<div><p class=\"stat-label\">%s</p><p class=\"stat-value\">%s</p></div>", esc(label), value)
}

func bar(p *pageWriter, percent int) {
	p.printf("<div class=\"bar\"><span style=\"width:%d%%\"></span></div>", percent)
}

func homePage(tools []tool) templ.Component {
	return page("Network Tools", 0, func(p *pageWriter) {
		header(p, "Network Tools", "Diagnostics toolbox", "Look up addresses, vendors and records, or run a simulated scan, ping or speed test.")
		p.raw("<section class=\"tool-grid\">")
		for _, t := range tools {
			p.printf("<a class=\"card\" href=\"%s\"><h2>%s</h2><p class=\"muted\">%s</p></a>", t.Path, esc(t.Name), esc(t.Description))
		}
		p.raw("</section>")
	})
}

func locationRows(p *pageWriter, loc geo.Location) {
	p.raw("<div class=\"stats-grid\">")
	stat(p, "IP address", "<span class=\"mono\">"+esc(loc.IP)+"</span>")
	stat(p, "Country", esc(loc.CountryName)+" ("+esc(loc.CountryCode)+")")
	stat(p, "Region", esc(loc.Region))
	stat(p, "City", esc(loc.City))
	stat(p, "Postal", esc(loc.Postal))
	stat(p, "Coordinates", fmt.Sprintf("%.4f, %.4f", loc.Latitude, loc.Longitude))
	stat(p, "Timezone", esc(loc.Timezone))
	stat(p, "Organisation", esc(loc.Org))
	stat(p, "ASN", esc(loc.ASN))
	if loc.Hostname != "" {
		stat(p, "Hostname", esc(loc.Hostname))
	}
	p.raw("</div>")
}

func myLocationPage(me geo.MyLocation, err error) templ.Component {
	return page("Network Tools - My Location", 0, func(p *pageWriter) {
		header(p, "Tool", "My IP & location", "Your public addresses as seen by the lookup service.")
		p.raw("<section class=\"card\">")
		if err != nil {
			errorLine(p, err)
			p.raw("</section>")
			return
		}
		p.raw("<div class=\"stats-grid\">")
		stat(p, "IPv4", "<span class=\"mono\">"+esc(me.IPv4)+"</span>")
		ipv6 := me.IPv6
		if ipv6 == "" {
			ipv6 = geo.NotAvailable
		}
		stat(p, "IPv6", "<span class=\"mono\">"+esc(ipv6)+"</span>")
		p.raw("</div></section><section class=\"card\"><h2>Location</h2>")
		locationRows(p, me.Location)
		p.raw("</section>")
	})
}

func whoisPage(ip string, loc *geo.Location, err error) templ.Component {
	return page("Network Tools - IP WHOIS", 0, func(p *pageWriter) {
		header(p, "Tool", "IP WHOIS lookup", "Registration and location details for an IPv4 address.")
		p.printf("<section class=\"card\"><form method=\"get\" class=\"tool-form\"><input name=\"ip\" placeholder=\"8.8.8.8\" value=\"%s\"><button type=\"submit\">Lookup</button></form>", esc(ip))
		errorLine(p, err)
		p.raw("</section>")
		if loc != nil {
			p.raw("<section class=\"card\"><h2>Result</h2>")
			locationRows(p, *loc)
			p.raw("</section>")
		}
	})
}

func macPage(mac string, vendor *reference.VendorRecord, err error) templ.Component {
	return page("Network Tools - MAC Lookup", 0, func(p *pageWriter) {
		header(p, "Tool", "MAC address lookup", "Find the manufacturer behind a hardware address.")
		p.printf("<section class=\"card\"><form method=\"get\" class=\"tool-form\"><input name=\"mac\" placeholder=\"00:1B:63:84:45:E6\" value=\"%s\"><button type=\"submit\">Lookup</button></form>", esc(mac))
		errorLine(p, err)
		p.raw("</section>")
		if vendor != nil {
			p.raw("<section class=\"card\"><h2>Vendor</h2><div class=\"stats-grid\">")
			stat(p, "MAC address", "<span class=\"mono\">"+esc(vendor.MAC)+"</span>")
			stat(p, "OUI", "<span class=\"mono\">"+esc(vendor.OUIPrefix)+"</span>")
			stat(p, "Company", esc(vendor.Company))
			stat(p, "Address", esc(vendor.Address))
			stat(p, "Country", esc(vendor.Country))
			stat(p, "Assignment", esc(vendor.AssignmentType))
			p.raw("</div></section>")
		}
	})
}

func dnsPage(domain, recordType string, result *DNSResult, err error) templ.Component {
	return page("Network Tools - DNS Lookup", 0, func(p *pageWriter) {
		header(p, "Tool", "DNS lookup", "Sample records for a domain.")
		p.printf("<section class=\"card\"><form method=\"get\" class=\"tool-form\"><input name=\"domain\" placeholder=\"google.com\" value=\"%s\"><select name=\"type\">", esc(domain))
		for _, t := range validate.RecordTypes {
			selected := ""
			if strings.EqualFold(t, recordType) {
				selected = " selected"
			}
			p.printf("<option value=\"%s\"%s>%s - %s</option>", t, selected, t, esc(reference.RecordTypeDescription(t)))
		}
		p.raw("</select><button type=\"submit\">Lookup</button></form>")
		errorLine(p, err)
		p.raw("</section>")
		if result == nil {
			return
		}
		p.printf("<section class=\"card\"><h2>%s records for %s</h2><p class=\"muted\">%s</p>", esc(result.Type), esc(result.Domain), esc(result.Description))
		p.raw("<div class=\"table-wrap\"><table class=\"data-table\"><thead><tr><th>Type</th><th>Value</th><th>TTL</th></tr></thead><tbody>")
		for _, rec := range result.Records {
			ttl := "-"
			if rec.TTL > 0 {
				ttl = fmt.Sprintf("%ds", rec.TTL)
			}
			p.printf("<tr><td>%s</td><td class=\"mono\">%s</td><td>%s</td></tr>", esc(rec.Type), esc(rec.Value), ttl)
		}
		p.raw("</tbody></table></div></section>")
	})
}

func scanPage(req portscan.Request, err error) templ.Component {
	return page("Network Tools - Port Scanner", 0, func(p *pageWriter) {
		header(p, "Tool", "Port scanner", "Simulated scan of common ports or a range of up to 100 ports.")
		p.printf("<section class=\"card\"><form method=\"post\" class=\"tool-form\"><input name=\"host\" placeholder=\"example.com or 192.168.1.1\" value=\"%s\">", esc(req.Host))
		p.raw("<select name=\"mode\">")
		for _, m := range []portscan.Mode{portscan.ModeCommon, portscan.ModeRange} {
			selected := ""
			if req.Mode == m {
				selected = " selected"
			}
			p.printf("<option value=\"%s\"%s>%s</option>", m, selected, m)
		}
		p.printf("</select><input name=\"port_range\" placeholder=\"1-1000\" value=\"%s\"><button type=\"submit\">Start scan</button></form>", esc(req.PortRange))
		errorLine(p, err)
		p.raw("</section>")
	})
}

func pingPage(req ping.Request, err error) templ.Component {
	return page("Network Tools - Ping Test", 0, func(p *pageWriter) {
		header(p, "Tool", "Ping test", fmt.Sprintf("Simulated echo once per second, up to %d samples.", ping.MaxSamples))
		p.printf("<section class=\"card\"><form method=\"post\" class=\"tool-form\"><input name=\"host\" placeholder=\"google.com or 8.8.8.8\" value=\"%s\"><button type=\"submit\">Start ping</button></form>", esc(req.Host))
		errorLine(p, err)
		p.raw("</section>")
	})
}

func speedPage(err error) templ.Component {
	return page("Network Tools - Speed Test", 0, func(p *pageWriter) {
		header(p, "Tool", "Speed test", "Simulated ping, download and upload measurement.")
		p.raw("<section class=\"card\"><form method=\"post\" class=\"tool-form\"><button type=\"submit\">Start test</button></form>")
		errorLine(p, err)
		p.raw("</section>")
	})
}

func runPage(snap runs.Snapshot) templ.Component {
	refresh := 0
	if !snap.Done() {
		refresh = 1
	}
	return page("Network Tools - Run", refresh, func(p *pageWriter) {
		title := map[runs.Kind]string{runs.KindScan: "Port scan", runs.KindPing: "Ping test", runs.KindSpeed: "Speed test"}[snap.Kind]
		header(p, "Run "+snap.ID, title, "Started "+snap.StartedAt.Format("15:04:05"))
		p.printf("<section class=\"card\"><p>%s <span class=\"muted\">%d%%</span></p>", badge(string(snap.State), string(snap.State)), snap.Progress)
		bar(p, snap.Progress)
		if snap.Error != "" {
			p.printf("<p class=\"error\">%s</p>", esc(snap.Error))
		}
		p.raw("<div class=\"page-actions\">")
		if snap.Done() {
			p.printf("<form method=\"post\" action=\"/runs/%s/reset\"><button class=\"ghost\" type=\"submit\">New run</button></form>", esc(snap.ID))
		} else {
			p.printf("<form method=\"post\" action=\"/runs/%s/stop\"><button type=\"submit\">Stop</button></form>", esc(snap.ID))
		}
		p.raw("</div></section>")

		switch {
		case snap.Scan != nil:
			scanResults(p, snap)
		case snap.Ping != nil:
			pingResults(p, *snap.Ping)
		case snap.Speed != nil:
			speedResults(p, *snap.Speed)
		}
	})
}

func scanResults(p *pageWriter, snap runs.Snapshot) {
	run := snap.Scan.Run
	p.raw("<section class=\"card\"><h2>Summary</h2><div class=\"stats-grid\">")
	stat(p, "Host", esc(run.Host))
	stat(p, "Scanned", fmt.Sprintf("%d / %d", len(run.Ports), snap.Scan.Total))
	stat(p, "Open", fmt.Sprint(run.Count(portscan.StatusOpen)))
	stat(p, "Closed", fmt.Sprint(run.Count(portscan.StatusClosed)))
	stat(p, "Filtered", fmt.Sprint(run.Count(portscan.StatusFiltered)))
	if snap.Done() {
		stat(p, "Scan time", fmt.Sprintf("%.2fs", float64(run.ScanDurationMs)/1000))
	}
	p.raw("</div></section>")
	if len(run.Ports) == 0 {
		p.raw("<section class=\"card\"><p class=\"empty\">No ports scanned yet.</p></section>")
		return
	}
	p.raw("<section class=\"card\"><div class=\"table-wrap\"><table class=\"data-table\"><thead><tr><th>Port</th><th>Status</th><th>Service</th><th>Description</th></tr></thead><tbody>")
	for _, r := range run.Ports {
		p.printf("<tr><td class=\"mono\">%d</td><td>%s</td><td>%s</td><td class=\"muted\">%s</td></tr>",
			r.Port, badge(string(r.Status), string(r.Status)), esc(r.Service), esc(r.Description))
	}
	p.raw("</tbody></table></div></section>")
}

func pingResults(p *pageWriter, snap ping.Snapshot) {
	st := snap.Stats
	p.raw("<section class=\"card\"><h2>Statistics</h2><div class=\"stats-grid\">")
	stat(p, "Host", esc(snap.Host))
	current := "-"
	if snap.CurrentMs != nil {
		current = badge(string(ping.LatencyBand(*snap.CurrentMs)), fmt.Sprintf("%d ms", *snap.CurrentMs))
	}
	stat(p, "Current", current)
	stat(p, "Sent", fmt.Sprint(st.Sent))
	stat(p, "Received", fmt.Sprint(st.Received))
	stat(p, "Loss", fmt.Sprintf("%.1f%%", st.LossPercentage))
	stat(p, "Min / Avg / Max", fmt.Sprintf("%d / %d / %d ms", st.MinMs, st.AvgMs, st.MaxMs))
	p.raw("</div></section>")
	if len(snap.Samples) == 0 {
		p.raw("<section class=\"card\"><p class=\"empty\">Waiting for the first reply.</p></section>")
		return
	}
	p.raw("<section class=\"card\"><div class=\"table-wrap\"><table class=\"data-table\"><thead><tr><th>Seq</th><th>Status</th><th>Time</th></tr></thead><tbody>")
	for i := len(snap.Samples) - 1; i >= 0; i-- {
		s := snap.Samples[i]
		latency := "-"
		if s.Status == ping.StatusSuccess {
			latency = badge(string(ping.LatencyBand(s.RoundTripMs)), fmt.Sprintf("%d ms", s.RoundTripMs))
		}
		p.printf("<tr><td class=\"mono\">%d</td><td>%s</td><td>%s</td></tr>", s.Sequence, badge(string(s.Status), string(s.Status)), latency)
	}
	p.raw("</tbody></table></div></section>")
}

func speedResults(p *pageWriter, snap speedtest.Snapshot) {
	p.printf("<section class=\"card\"><h2>%s</h2>", esc(speedtest.StatusText(snap.Phase)))
	if snap.Outcome == nil {
		p.raw("<div class=\"stats-grid\">")
		stat(p, "Phase", esc(string(snap.Phase)))
		stat(p, "Phase progress", fmt.Sprintf("%d%%", snap.Progress))
		if snap.CurrentMbps > 0 {
			stat(p, "Current", fmt.Sprintf("%.1f Mbps", snap.CurrentMbps))
		}
		p.raw("</div></section>")
		return
	}
	out := snap.Outcome
	p.raw("<div class=\"stats-grid\">")
	dg, ug := speedtest.DownloadGrade(out.DownloadMbps), speedtest.UploadGrade(out.UploadMbps)
	pg, jg := speedtest.PingGrade(out.PingMs), speedtest.JitterGrade(out.JitterMs)
	stat(p, "Download", fmt.Sprintf("%.2f Mbps %s", out.DownloadMbps, badge(string(dg), string(dg))))
	stat(p, "Upload", fmt.Sprintf("%.2f Mbps %s", out.UploadMbps, badge(string(ug), string(ug))))
	stat(p, "Ping", fmt.Sprintf("%d ms %s", out.PingMs, badge(string(pg), string(pg))))
	stat(p, "Jitter", fmt.Sprintf("%d ms %s", out.JitterMs, badge(string(jg), string(jg))))
	stat(p, "Server", esc(out.ServerLabel))
	stat(p, "Your IP", "<span class=\"mono\">"+esc(out.ClientIP)+"</span>")
	p.raw("</div></section>")
}

func historyPage(h db.History, now time.Time) templ.Component {
	ago := func(t time.Time) string { return humanize.RelTime(t, now, "ago", "from now") }
	return page("Network Tools - History", 0, func(p *pageWriter) {
		header(p, "Network Tools", "History", "Completed runs and lookups, newest first.")
		p.raw("<div class=\"page-actions\"><a class=\"back-link\" href=\"/api/export?format=json\">Export JSON</a><a class=\"back-link\" href=\"/api/export?format=csv\">Export CSV</a><a class=\"back-link\" href=\"/api/export?format=text\">Export text</a><form method=\"post\" action=\"/history/clear\"><button class=\"ghost\" type=\"submit\">Clear history</button></form></div>")

		p.raw("<section class=\"card\"><h2>Port scans</h2>")
		if len(h.Scans) == 0 {
			p.raw("<p class=\"empty\">No scans recorded.</p>")
		} else {
			p.raw("<div class=\"table-wrap\"><table class=\"data-table\"><thead><tr><th>When</th><th>Host</th><th>Mode</th><th>Open</th><th>Time</th></tr></thead><tbody>")
			for _, s := range h.Scans {
				mode := s.Mode
				if s.PortRange != "" {
					mode += " " + s.PortRange
				}
				p.printf("<tr><td>%s</td><td>%s</td><td>%s</td><td>%d / %d</td><td>%dms</td></tr>", ago(s.CreatedAt), esc(s.Host), esc(mode), s.OpenPorts, s.TotalPorts, s.DurationMs)
			}
			p.raw("</tbody></table></div>")
		}
		p.raw("</section>")

		p.raw("<section class=\"card\"><h2>Ping tests</h2>")
		if len(h.Pings) == 0 {
			p.raw("<p class=\"empty\">No pings recorded.</p>")
		} else {
			p.raw("<div class=\"table-wrap\"><table class=\"data-table\"><thead><tr><th>When</th><th>Host</th><th>Sent</th><th>Loss</th><th>Avg</th></tr></thead><tbody>")
			for _, r := range h.Pings {
				p.printf("<tr><td>%s</td><td>%s</td><td>%d</td><td>%.1f%%</td><td>%d ms</td></tr>", ago(r.CreatedAt), esc(r.Host), r.Sent, r.LossPercentage, r.AvgMs)
			}
			p.raw("</tbody></table></div>")
		}
		p.raw("</section>")

		p.raw("<section class=\"card\"><h2>Speed tests</h2>")
		if len(h.SpeedTests) == 0 {
			p.raw("<p class=\"empty\">No speed tests recorded.</p>")
		} else {
			p.raw("<div class=\"table-wrap\"><table class=\"data-table\"><thead><tr><th>When</th><th>Download</th><th>Upload</th><th>Ping</th><th>Jitter</th></tr></thead><tbody>")
			for _, t := range h.SpeedTests {
				p.printf("<tr><td>%s</td><td>%.2f Mbps</td><td>%.2f Mbps</td><td>%d ms</td><td>%d ms</td></tr>", ago(t.CreatedAt), t.DownloadMbps, t.UploadMbps, t.PingMs, t.JitterMs)
			}
			p.raw("</tbody></table></div>")
		}
		p.raw("</section>")

		p.raw("<section class=\"card\"><h2>Lookups</h2>")
		if len(h.Lookups) == 0 {
			p.raw("<p class=\"empty\">No lookups recorded.</p>")
		} else {
			p.raw("<div class=\"table-wrap\"><table class=\"data-table\"><thead><tr><th>When</th><th>Kind</th><th>Query</th><th>Result</th></tr></thead><tbody>")
			for _, l := range h.Lookups {
				p.printf("<tr><td>%s</td><td>%s</td><td class=\"mono\">%s</td><td>%s</td></tr>", ago(l.CreatedAt), esc(l.Kind), esc(l.Query), esc(l.Summary))
			}
			p.raw("</tbody></table></div>")
		}
		p.raw("</section>")
	})
}
