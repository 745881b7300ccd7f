package main

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/sim"
	"github.com/sloppy/nettools/internal/testutil"
)

// useFakes swaps in a scripted random source, a fake clock and a geo client
// pointed at mux for the duration of the test.
func useFakes(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	prevRand, prevClock, prevClient := newRand, newClock, newClient
	newRand = func() sim.Rand { return testutil.NewSeqRand(0.05) }
	newClock = func() sim.Clock { return testutil.NewFakeClock() }
	if mux != nil {
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		newClient = func() *geo.Client {
			c := geo.NewClient(srv.Client())
			c.BaseURL = srv.URL
			c.IPv4URL = srv.URL + "/ipify4"
			c.IPv6URL = srv.URL + "/ipify6"
			return c
		}
	}
	t.Cleanup(func() {
		newRand, newClock, newClient = prevRand, prevClock, prevClient
	})
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if exit := run([]string{"nettools"}, &stdout, &stderr); exit != 1 {
		t.Fatalf("expected exit 1 without command, got %d", exit)
	}
	if !strings.Contains(stdout.String(), "Usage: nettools") {
		t.Fatalf("expected usage, got %q", stdout.String())
	}

	stdout.Reset()
	if exit := run([]string{"nettools", "bogus"}, &stdout, &stderr); exit != 1 {
		t.Fatalf("expected exit 1 for unknown command, got %d", exit)
	}
	if !strings.Contains(stderr.String(), "unknown command: bogus") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}

	stdout.Reset()
	if exit := run([]string{"nettools", "help"}, &stdout, ioDiscard{}); exit != 0 {
		t.Fatalf("help exit %d", exit)
	}
}

func TestScanCLI(t *testing.T) {
	useFakes(t, nil)
	dbPath := filepath.Join(testutil.TempDir(t), "cli.db")

	var stdout bytes.Buffer
	exit := run([]string{"nettools", "scan", "example.com", "--db", dbPath}, &stdout, ioDiscard{})
	if exit != 0 {
		t.Fatalf("scan exit %d", exit)
	}
	output := stdout.String()
	if !strings.Contains(output, "Scan of example.com: 16 ports") {
		t.Fatalf("unexpected scan output %q", output)
	}
	if !strings.Contains(output, "open 16, closed 0, filtered 0") || !strings.Contains(output, "MongoDB") {
		t.Fatalf("unexpected scan output %q", output)
	}

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()
	scans, err := database.ListScanRuns(0)
	if err != nil {
		t.Fatalf("list scans: %v", err)
	}
	if len(scans) != 1 || scans[0].Host != "example.com" || scans[0].TotalPorts != 16 {
		t.Fatalf("unexpected stored scans: %+v", scans)
	}
}

func TestScanCLIRangeFlag(t *testing.T) {
	useFakes(t, nil)
	dbPath := filepath.Join(testutil.TempDir(t), "cli.db")

	var stdout bytes.Buffer
	exit := run([]string{"nettools", "scan", "--range", "8000-8004", "10.0.0.1", "--db", dbPath}, &stdout, ioDiscard{})
	if exit != 0 {
		t.Fatalf("scan exit %d", exit)
	}
	if !strings.Contains(stdout.String(), "5 ports") || !strings.Contains(stdout.String(), "Unknown service") {
		t.Fatalf("unexpected range output %q", stdout.String())
	}
}

func TestScanCLIRejectsBadInput(t *testing.T) {
	useFakes(t, nil)
	dbPath := filepath.Join(testutil.TempDir(t), "cli.db")

	tests := []struct {
		name   string
		args   []string
		expect string
	}{
		{"no host", []string{"nettools", "scan", "--db", dbPath}, "scan requires exactly one host"},
		{"bad host", []string{"nettools", "scan", "bad host!", "--db", dbPath}, "host: Please enter a valid IP address or domain name"},
		{"bad range", []string{"nettools", "scan", "10.0.0.1", "--range", "abc", "--db", dbPath}, "port_range: Please enter a valid port range"},
		{"dangling flag", []string{"nettools", "scan", "10.0.0.1", "--mode"}, "--mode flag requires a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if exit := run(tt.args, ioDiscard{}, &stderr); exit == 0 {
				t.Fatalf("expected non-zero exit")
			}
			if !strings.Contains(stderr.String(), tt.expect) {
				t.Fatalf("expected %q, got %q", tt.expect, stderr.String())
			}
		})
	}
}

func TestPingCLI(t *testing.T) {
	useFakes(t, nil)
	newRand = func() sim.Rand { return testutil.NewSeqRand(0.05, 0.5) }
	dbPath := filepath.Join(testutil.TempDir(t), "cli.db")

	var stdout bytes.Buffer
	exit := run([]string{"nettools", "ping", "8.8.8.8", "--db", dbPath}, &stdout, ioDiscard{})
	if exit != 0 {
		t.Fatalf("ping exit %d", exit)
	}
	output := stdout.String()
	if !strings.Contains(output, "PING 8.8.8.8") || !strings.Contains(output, "seq=20 time=15ms (good)") {
		t.Fatalf("unexpected ping output %q", output)
	}
	if !strings.Contains(output, "20 sent, 20 received, 0.0% loss") {
		t.Fatalf("unexpected ping summary %q", output)
	}
}

func TestSpeedTestCLI(t *testing.T) {
	useFakes(t, nil)
	dbPath := filepath.Join(testutil.TempDir(t), "cli.db")

	var stdout bytes.Buffer
	exit := run([]string{"nettools", "speedtest", "--db", dbPath}, &stdout, ioDiscard{})
	if exit != 0 {
		t.Fatalf("speedtest exit %d", exit)
	}
	output := stdout.String()
	for _, want := range []string{"77.50 Mbps", "36.50 Mbps", "Test Server - New York, NY", "192.168.1.100"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in %q", want, output)
		}
	}

	stdout.Reset()
	if exit := run([]string{"nettools", "history", "--db", dbPath, "--kind", "speed"}, &stdout, ioDiscard{}); exit != 0 {
		t.Fatalf("history exit %d", exit)
	}
	if !strings.Contains(stdout.String(), "77.50") || strings.Contains(stdout.String(), "Port scans:") {
		t.Fatalf("unexpected history output %q", stdout.String())
	}
}

// storedLookups returns the lookups of kind recorded in dbPath, newest first.
func storedLookups(t *testing.T, dbPath, kind string) []db.Lookup {
	t.Helper()
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()
	lookups, err := database.ListLookups(kind, 0)
	if err != nil {
		t.Fatalf("list lookups: %v", err)
	}
	return lookups
}

func TestLookupCLIs(t *testing.T) {
	dbPath := filepath.Join(testutil.TempDir(t), "cli.db")

	var stdout, stderr bytes.Buffer
	if exit := run([]string{"nettools", "mac", "00-1b-63-84-45-e6", "--db", dbPath}, &stdout, &stderr); exit != 0 {
		t.Fatalf("mac exit %d: %s", exit, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Apple, Inc.") || !strings.Contains(stdout.String(), "00:1B:63:84:45:E6") {
		t.Fatalf("unexpected mac output %q", stdout.String())
	}

	stdout.Reset()
	if exit := run([]string{"nettools", "dns", "GitHub.com", "--type", "mx", "--db", dbPath}, &stdout, &stderr); exit != 0 {
		t.Fatalf("dns exit %d: %s", exit, stderr.String())
	}
	if !strings.Contains(stdout.String(), "MX records for github.com") || !strings.Contains(stdout.String(), "aspmx.l.google.com") {
		t.Fatalf("unexpected dns output %q", stdout.String())
	}

	stderr.Reset()
	if exit := run([]string{"nettools", "mac", "zz:zz", "--db", dbPath}, ioDiscard{}, &stderr); exit == 0 {
		t.Fatalf("expected invalid mac to fail")
	}
	if !strings.Contains(stderr.String(), "Please enter a valid MAC address") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}

	macs := storedLookups(t, dbPath, db.LookupMAC)
	if len(macs) != 1 || macs[0].Query != "00:1B:63:84:45:E6" || macs[0].Summary != "Apple, Inc." {
		t.Fatalf("unexpected stored mac lookups: %+v", macs)
	}
	dns := storedLookups(t, dbPath, db.LookupDNS)
	if len(dns) != 1 || dns[0].Query != "MX GitHub.com" || !strings.HasSuffix(dns[0].Summary, "record(s)") {
		t.Fatalf("unexpected stored dns lookups: %+v", dns)
	}

	stdout.Reset()
	if exit := run([]string{"nettools", "history", "--db", dbPath, "--kind", "lookup"}, &stdout, &stderr); exit != 0 {
		t.Fatalf("history exit %d: %s", exit, stderr.String())
	}
	if !strings.Contains(stdout.String(), "00:1B:63:84:45:E6") || !strings.Contains(stdout.String(), "MX GitHub.com") {
		t.Fatalf("expected lookups in history, got %q", stdout.String())
	}
}

func TestWhoisAndMyIPCLI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/8.8.8.8/json/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geo.Location{IP: "8.8.8.8", Org: "GOOGLE", City: "Mountain View", CountryName: "United States", CountryCode: "US"})
	})
	mux.HandleFunc("/ipify4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"8.8.8.8"}`))
	})
	mux.HandleFunc("/ipify6", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	useFakes(t, mux)
	dbPath := filepath.Join(testutil.TempDir(t), "cli.db")

	var stdout, stderr bytes.Buffer
	if exit := run([]string{"nettools", "whois", "008.8.8.8", "--db", dbPath}, &stdout, &stderr); exit != 0 {
		t.Fatalf("whois exit %d: %s", exit, stderr.String())
	}
	if !strings.Contains(stdout.String(), "GOOGLE") || !strings.Contains(stdout.String(), geo.NotAvailable) {
		t.Fatalf("unexpected whois output %q", stdout.String())
	}

	stderr.Reset()
	if exit := run([]string{"nettools", "whois", "10.1.2.3", "--db", dbPath}, ioDiscard{}, &stderr); exit == 0 {
		t.Fatalf("expected reserved address to fail")
	}
	if !strings.Contains(stderr.String(), geo.ReasonReserved+" (Private-Use)") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}

	stdout.Reset()
	if exit := run([]string{"nettools", "myip", "--db", dbPath}, &stdout, &stderr); exit != 0 {
		t.Fatalf("myip exit %d: %s", exit, stderr.String())
	}
	if !strings.Contains(stdout.String(), "IPv4\t8.8.8.8") || !strings.Contains(stdout.String(), "Mountain View") {
		t.Fatalf("unexpected myip output %q", stdout.String())
	}

	whois := storedLookups(t, dbPath, db.LookupWhois)
	if len(whois) != 1 || whois[0].Query != "8.8.8.8" || whois[0].Summary != "GOOGLE, Mountain View, United States" {
		t.Fatalf("unexpected stored whois lookups: %+v", whois)
	}
	myip := storedLookups(t, dbPath, db.LookupMyIP)
	if len(myip) != 1 || myip[0].Query != "8.8.8.8" {
		t.Fatalf("unexpected stored myip lookups: %+v", myip)
	}
}

func TestWhoisCLIOffline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream request %s", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	})
	useFakes(t, mux)
	tmp := testutil.TempDir(t)
	dbPath := filepath.Join(tmp, "cli.db")
	cityPath := filepath.Join(tmp, "city.mmdb")

	w, err := mmdbwriter.New(mmdbwriter.Options{DatabaseType: "GeoLite2-City", RecordSize: 24})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	_, network, _ := net.ParseCIDR("1.1.1.0/24")
	record := mmdbtype.Map{
		"city":    mmdbtype.Map{"names": mmdbtype.Map{"en": mmdbtype.String("Sydney")}},
		"country": mmdbtype.Map{"iso_code": mmdbtype.String("AU"), "names": mmdbtype.Map{"en": mmdbtype.String("Australia")}},
	}
	if err := w.Insert(network, record); err != nil {
		t.Fatalf("insert: %v", err)
	}
	f, err := os.Create(cityPath)
	if err != nil {
		t.Fatalf("create mmdb: %v", err)
	}
	if _, err := w.WriteTo(f); err != nil {
		t.Fatalf("write mmdb: %v", err)
	}
	f.Close()

	var stdout, stderr bytes.Buffer
	if exit := run([]string{"nettools", "whois", "1.1.1.1", "--geoip-city", cityPath, "--db", dbPath}, &stdout, &stderr); exit != 0 {
		t.Fatalf("whois exit %d: %s", exit, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Sydney") || !strings.Contains(stdout.String(), "Australia (AU)") {
		t.Fatalf("unexpected whois output %q", stdout.String())
	}
	whois := storedLookups(t, dbPath, db.LookupWhois)
	if len(whois) != 1 || whois[0].Summary != "Sydney, Australia" {
		t.Fatalf("unexpected stored whois lookups: %+v", whois)
	}

	stderr.Reset()
	if exit := run([]string{"nettools", "whois", "1.1.1.1", "--geoip-asn", "asn.mmdb"}, ioDiscard{}, &stderr); exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if !strings.Contains(stderr.String(), "--geoip-asn requires --geoip-city") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestExportCLI(t *testing.T) {
	useFakes(t, nil)
	tmp := testutil.TempDir(t)
	dbPath := filepath.Join(tmp, "cli.db")

	if exit := run([]string{"nettools", "scan", "192.168.1.10", "--db", dbPath}, ioDiscard{}, ioDiscard{}); exit != 0 {
		t.Fatalf("scan exit %d", exit)
	}

	outPath := filepath.Join(tmp, "history.csv")
	var stdout bytes.Buffer
	exit := run([]string{"nettools", "export", "--db", dbPath, "--format", "csv", "-o", outPath}, &stdout, ioDiscard{})
	if exit != 0 {
		t.Fatalf("export exit %d", exit)
	}
	if !strings.Contains(stdout.String(), "exported "+outPath+" (csv)") {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "kind,run_id") || !strings.Contains(string(data), "192.168.1.10") {
		t.Fatalf("unexpected csv %q", string(data))
	}

	stdout.Reset()
	if exit := run([]string{"nettools", "export", "--db", dbPath}, &stdout, ioDiscard{}); exit != 0 {
		t.Fatalf("export to stdout exit %d", exit)
	}
	var payload map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("decode json export: %v", err)
	}
	if _, ok := payload["scans"]; !ok {
		t.Fatalf("expected scans key in %v", payload)
	}

	var stderr bytes.Buffer
	if exit := run([]string{"nettools", "export", "--db", dbPath, "--format", "xml"}, ioDiscard{}, &stderr); exit == 0 {
		t.Fatalf("expected unknown format to fail")
	}
	if !strings.Contains(stderr.String(), "unknown export format: xml") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestServeRejectsBadFlags(t *testing.T) {
	var stderr bytes.Buffer
	if exit := run([]string{"nettools", "serve", "--log-level", "loud"}, ioDiscard{}, &stderr); exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if !strings.Contains(stderr.String(), `invalid log level "loud"`) {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}

	stderr.Reset()
	if exit := run([]string{"nettools", "serve", "--geoip-asn", "asn.mmdb"}, ioDiscard{}, &stderr); exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
}

func TestExtractFlag(t *testing.T) {
	val, rest, err := extractFlag([]string{"host", "--db", "x.db", "more"}, "db", "default.db")
	if err != nil || val != "x.db" || len(rest) != 2 || rest[0] != "host" || rest[1] != "more" {
		t.Fatalf("unexpected extract: %q %v %v", val, rest, err)
	}
	val, _, _ = extractFlag([]string{"host"}, "db", "default.db")
	if val != "default.db" {
		t.Fatalf("expected default, got %q", val)
	}
	if _, _, err := extractFlag([]string{"-db"}, "db", ""); err == nil {
		t.Fatalf("expected error for missing value")
	}
}

// ioDiscard is a minimal io.Writer to drop output without importing io once more.
type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }
