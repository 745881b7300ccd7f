package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/export"
	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/ping"
	"github.com/sloppy/nettools/internal/portscan"
	"github.com/sloppy/nettools/internal/reference"
	"github.com/sloppy/nettools/internal/runs"
	"github.com/sloppy/nettools/internal/speedtest"
	"github.com/sloppy/nettools/internal/validate"
)

func printErr(errOut io.Writer, prefix string, err error) {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fmt.Fprintf(errOut, "%s: %s\n", fe.Field, fe.Message)
		}
		return
	}
	fmt.Fprintf(errOut, "%s: %v\n", prefix, err)
}

func openManager(dbPath string, errOut io.Writer) (*db.DB, *runs.Manager, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return database, runs.NewManager(newRand(), newClock(), runs.NewDBStore(database), logger), nil
}

// waitRun blocks until id ends. An interrupt stops the run and keeps waiting
// for whatever it produced.
func waitRun(m *runs.Manager, id string) (runs.Snapshot, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	snap, err := m.Wait(ctx, id)
	if err != nil && ctx.Err() != nil {
		if err := m.Stop(id); err != nil {
			return snap, err
		}
		return m.Wait(context.Background(), id)
	}
	return snap, err
}

// recordLookup adds a lookup to the history. A database problem is reported
// but leaves the lookup's own output and exit status alone.
func recordLookup(dbPath string, errOut io.Writer, kind, query, summary string) {
	database, err := db.Open(dbPath)
	if err != nil {
		fmt.Fprintf(errOut, "open db: %v\n", err)
		return
	}
	defer database.Close()
	if _, err := database.RecordLookup(kind, query, summary); err != nil {
		fmt.Fprintf(errOut, "record lookup: %v\n", err)
	}
}

// startAndWait runs one simulator to the end under a fresh manager.
func startAndWait(dbPath string, errOut io.Writer, start func(*runs.Manager) (string, error)) (runs.Snapshot, bool) {
	database, manager, err := openManager(dbPath, errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return runs.Snapshot{}, false
	}
	defer database.Close()
	defer manager.Close()

	id, err := start(manager)
	if err != nil {
		printErr(errOut, "start", err)
		return runs.Snapshot{}, false
	}
	snap, err := waitRun(manager, id)
	if err != nil {
		fmt.Fprintf(errOut, "wait: %v\n", err)
		return runs.Snapshot{}, false
	}
	if snap.State == runs.StateFailed {
		fmt.Fprintf(errOut, "run failed: %s\n", snap.Error)
		return snap, false
	}
	return snap, true
}

func runScan(args []string, out, errOut io.Writer) int {
	values, remaining, err := extractFlags(args, []string{"db", "mode", "range"}, []string{defaultDBPath, "", ""})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "scan requires exactly one host")
		return 1
	}
	req := portscan.Request{Host: remaining[0], Mode: portscan.Mode(values[1]), PortRange: values[2]}
	if req.Mode == "" && req.PortRange != "" {
		req.Mode = portscan.ModeRange
	}

	snap, ok := startAndWait(values[0], errOut, func(m *runs.Manager) (string, error) { return m.StartScan(req) })
	if !ok {
		return 1
	}
	scan := snap.Scan.Run
	fmt.Fprintf(out, "Scan of %s: %d ports in %dms\n", scan.Host, len(scan.Ports), scan.ScanDurationMs)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tSTATUS\tSERVICE\tDESCRIPTION")
	for _, p := range scan.Ports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Port, p.Status, p.Service, p.Description)
	}
	tw.Flush()
	fmt.Fprintf(out, "open %d, closed %d, filtered %d\n",
		scan.Count(portscan.StatusOpen), scan.Count(portscan.StatusClosed), scan.Count(portscan.StatusFiltered))
	if snap.State == runs.StateStopped {
		fmt.Fprintf(out, "stopped after %d of %d ports\n", len(scan.Ports), snap.Scan.Total)
	}
	return 0
}

func runPing(args []string, out, errOut io.Writer) int {
	dbPath, remaining, err := extractFlag(args, "db", defaultDBPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "ping requires exactly one host")
		return 1
	}

	snap, ok := startAndWait(dbPath, errOut, func(m *runs.Manager) (string, error) {
		return m.StartPing(ping.Request{Host: remaining[0]})
	})
	if !ok {
		return 1
	}
	result := snap.Ping
	fmt.Fprintf(out, "PING %s\n", result.Host)
	for _, s := range result.Samples {
		if s.Status == ping.StatusSuccess {
			fmt.Fprintf(out, "seq=%d time=%dms (%s)\n", s.Sequence, s.RoundTripMs, ping.LatencyBand(s.RoundTripMs))
			continue
		}
		fmt.Fprintf(out, "seq=%d timeout\n", s.Sequence)
	}
	st := result.Stats
	fmt.Fprintf(out, "%d sent, %d received, %.1f%% loss\n", st.Sent, st.Received, st.LossPercentage)
	if st.Received > 0 {
		fmt.Fprintf(out, "min/avg/max = %d/%d/%d ms\n", st.MinMs, st.AvgMs, st.MaxMs)
	}
	return 0
}

func runSpeedTest(args []string, out, errOut io.Writer) int {
	dbPath, remaining, err := extractFlag(args, "db", defaultDBPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}

	snap, ok := startAndWait(dbPath, errOut, func(m *runs.Manager) (string, error) { return m.StartSpeed() })
	if !ok {
		return 1
	}
	if snap.Speed == nil || snap.Speed.Outcome == nil {
		fmt.Fprintln(out, "speed test stopped")
		return 0
	}
	o := snap.Speed.Outcome
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Download\t%.2f Mbps\t%s\n", o.DownloadMbps, speedtest.DownloadGrade(o.DownloadMbps))
	fmt.Fprintf(tw, "Upload\t%.2f Mbps\t%s\n", o.UploadMbps, speedtest.UploadGrade(o.UploadMbps))
	fmt.Fprintf(tw, "Ping\t%d ms\t%s\n", o.PingMs, speedtest.PingGrade(o.PingMs))
	fmt.Fprintf(tw, "Jitter\t%d ms\t%s\n", o.JitterMs, speedtest.JitterGrade(o.JitterMs))
	fmt.Fprintf(tw, "Server\t%s\t\n", o.ServerLabel)
	fmt.Fprintf(tw, "Client\t%s\t\n", o.ClientIP)
	tw.Flush()
	return 0
}

func runMAC(args []string, out, errOut io.Writer) int {
	dbPath, remaining, err := extractFlag(args, "db", defaultDBPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "mac requires exactly one address")
		return 1
	}
	req := validate.MACRequest{MAC: remaining[0]}
	if err := req.Validate(); err != nil {
		printErr(errOut, "mac", err)
		return 1
	}
	v := reference.LookupVendor(req.MAC)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "MAC\t%s\n", v.MAC)
	fmt.Fprintf(tw, "OUI\t%s\n", v.OUIPrefix)
	fmt.Fprintf(tw, "Company\t%s\n", v.Company)
	fmt.Fprintf(tw, "Address\t%s\n", v.Address)
	fmt.Fprintf(tw, "Country\t%s\n", v.Country)
	fmt.Fprintf(tw, "Type\t%s\n", v.AssignmentType)
	tw.Flush()
	recordLookup(dbPath, errOut, db.LookupMAC, v.MAC, v.Company)
	return 0
}

func runDNS(args []string, out, errOut io.Writer) int {
	values, remaining, err := extractFlags(args, []string{"db", "type"}, []string{defaultDBPath, "A"})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "dns requires exactly one domain")
		return 1
	}
	req := validate.DNSRequest{Domain: remaining[0], Type: values[1]}
	if err := req.Validate(); err != nil {
		printErr(errOut, "dns", err)
		return 1
	}
	fmt.Fprintf(out, "%s records for %s (%s)\n", req.Type, strings.ToLower(req.Domain), reference.RecordTypeDescription(req.Type))
	records := reference.LookupDNS(req.Domain, req.Type)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", rec.Type, rec.Value, rec.TTL)
	}
	tw.Flush()
	recordLookup(values[0], errOut, db.LookupDNS, req.Type+" "+req.Domain, fmt.Sprintf("%d record(s)", len(records)))
	return 0
}

func printLocation(out io.Writer, loc geo.Location) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "IP\t%s\n", loc.IP)
	fmt.Fprintf(tw, "Organization\t%s\n", loc.Org)
	fmt.Fprintf(tw, "ASN\t%s\n", loc.ASN)
	fmt.Fprintf(tw, "City\t%s\n", loc.City)
	fmt.Fprintf(tw, "Region\t%s\n", loc.Region)
	fmt.Fprintf(tw, "Country\t%s (%s)\n", loc.CountryName, loc.CountryCode)
	fmt.Fprintf(tw, "Postal\t%s\n", loc.Postal)
	fmt.Fprintf(tw, "Timezone\t%s\n", loc.Timezone)
	fmt.Fprintf(tw, "Coordinates\t%.4f, %.4f\n", loc.Latitude, loc.Longitude)
	tw.Flush()
}

func runWhois(args []string, out, errOut io.Writer) int {
	values, remaining, err := extractFlags(args, []string{"db", "geoip-city", "geoip-asn"}, []string{defaultDBPath, "", ""})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	dbPath, cityPath, asnPath := values[0], values[1], values[2]
	if len(remaining) != 1 {
		fmt.Fprintln(errOut, "whois requires exactly one IPv4 address")
		return 1
	}
	if asnPath != "" && cityPath == "" {
		fmt.Fprintln(errOut, "--geoip-asn requires --geoip-city")
		return 1
	}
	req := validate.IPRequest{IP: remaining[0]}
	if err := req.Validate(); err != nil {
		printErr(errOut, "whois", err)
		return 1
	}

	var resolver geo.Resolver = newClient()
	if cityPath != "" {
		mmdb, err := geo.OpenMMDB(cityPath, asnPath)
		if err != nil {
			fmt.Fprintf(errOut, "open geoip: %v\n", err)
			return 1
		}
		defer mmdb.Close()
		resolver = mmdb
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	loc, err := resolver.Lookup(ctx, req.IP)
	if err != nil {
		var lerr *geo.LookupError
		if errors.As(err, &lerr) && lerr.Block != "" {
			fmt.Fprintf(errOut, "whois: %s (%s)\n", lerr.Reason, lerr.Block)
			return 1
		}
		fmt.Fprintf(errOut, "whois: %v\n", err)
		return 1
	}
	loc = loc.WithPlaceholders(geo.NotAvailable)
	printLocation(out, loc)
	recordLookup(dbPath, errOut, db.LookupWhois, req.IP, loc.Summary())
	return 0
}

func runMyIP(args []string, out, errOut io.Writer) int {
	dbPath, remaining, err := extractFlag(args, "db", defaultDBPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	me, err := newClient().Self(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "myip: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "IPv4\t%s\n", me.IPv4)
	if me.IPv6 != "" {
		fmt.Fprintf(out, "IPv6\t%s\n", me.IPv6)
	}
	printLocation(out, me.Location)
	recordLookup(dbPath, errOut, db.LookupMyIP, me.IPv4, me.Location.Summary())
	return 0
}

func runHistory(args []string, out, errOut io.Writer) int {
	values, remaining, err := extractFlags(args, []string{"db", "kind"}, []string{defaultDBPath, ""})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	database, err := db.Open(values[0])
	if err != nil {
		fmt.Fprintf(errOut, "open db: %v\n", err)
		return 1
	}
	defer database.Close()

	if err := export.HistoryText(database, out, strings.ToLower(values[1]), time.Now().UTC()); err != nil {
		fmt.Fprintf(errOut, "history: %v\n", err)
		return 1
	}
	return 0
}

func runExport(args []string, out, errOut io.Writer) int {
	values, remaining, err := extractFlags(args, []string{"db", "format", "o"}, []string{defaultDBPath, export.FormatJSON, ""})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	outputPath := values[2]
	if outputPath == "" {
		outputPath, remaining, err = extractFlag(remaining, "output", "")
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	format := strings.ToLower(values[1])
	switch format {
	case export.FormatJSON, export.FormatCSV, export.FormatText:
	default:
		fmt.Fprintf(errOut, "unknown export format: %s\n", format)
		return 1
	}

	database, err := db.Open(values[0])
	if err != nil {
		fmt.Fprintf(errOut, "open db: %v\n", err)
		return 1
	}
	defer database.Close()

	w := out
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			fmt.Fprintf(errOut, "create output: %v\n", err)
			return 1
		}
		defer file.Close()
		w = file
	}
	if err := export.Write(database, w, format, time.Now().UTC()); err != nil {
		fmt.Fprintf(errOut, "export %s: %v\n", format, err)
		return 1
	}
	if outputPath != "" {
		fmt.Fprintf(out, "exported %s (%s)\n", outputPath, format)
	}
	return 0
}
