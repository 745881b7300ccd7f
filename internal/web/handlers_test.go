package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/runs"
	"github.com/sloppy/nettools/internal/sim"
	"github.com/sloppy/nettools/internal/testutil"
	"github.com/sloppy/nettools/internal/validate"
)

type fakeResolver struct {
	loc geo.Location
	err error
}

func (f fakeResolver) Lookup(ctx context.Context, ip string) (geo.Location, error) {
	if f.err != nil {
		return geo.Location{}, f.err
	}
	loc := f.loc
	loc.IP = ip
	return loc, nil
}

type fakeLocator struct {
	me  geo.MyLocation
	err error
}

func (f fakeLocator) Self(ctx context.Context) (geo.MyLocation, error) {
	return f.me, f.err
}

var googleDNS = geo.Location{CountryName: "United States", CountryCode: "US", City: "Mountain View", Org: "Google LLC", ASN: "AS15169"}

func newTestServer(t *testing.T, clock sim.Clock) (*db.DB, *Server) {
	t.Helper()
	dir := testutil.TempDir(t)
	database, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := runs.NewManager(testutil.NewSeqRand(0.05), clock, runs.NewDBStore(database), logger)
	t.Cleanup(func() {
		manager.Close()
		database.Close()
	})
	server := NewServer(database, manager, fakeResolver{loc: googleDNS}, fakeLocator{me: geo.MyLocation{IPv4: "203.0.113.7", Location: googleDNS}}, logger)
	return database, server
}

func do(t *testing.T, s *Server, method, target string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, "http://localhost:8080"+target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCSRFGuard(t *testing.T) {
	t.Run("rejects invalid origin", func(t *testing.T) {
		_, server := newTestServer(t, testutil.NewFakeClock())

		rec := do(t, server, http.MethodPost, "/api/scans", `{"host":"example.com"}`, "Origin", "http://evil.com")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("allows local origin", func(t *testing.T) {
		_, server := newTestServer(t, testutil.NewFakeClock())

		rec := do(t, server, http.MethodPost, "/api/scans", `{"host":"example.com"}`, "Origin", "http://localhost:8080")

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
	})

	t.Run("allows empty origin", func(t *testing.T) {
		_, server := newTestServer(t, testutil.NewFakeClock())

		rec := do(t, server, http.MethodPost, "/api/scans", `{"host":"example.com"}`)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
	})
}

func TestScanLifecycle(t *testing.T) {
	database, server := newTestServer(t, testutil.NewFakeClock())

	rec := do(t, server, http.MethodPost, "/api/scans", `{"host":"example.com","mode":"range","port_range":"20-30"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	started := decode[startResponse](t, rec)
	if started.ID == "" || started.URL != "/api/runs/"+started.ID {
		t.Fatalf("unexpected start response: %+v", started)
	}

	rec = do(t, server, http.MethodGet, "/api/runs/"+started.ID+"?wait=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	snap := decode[runs.Snapshot](t, rec)
	if snap.State != runs.StateComplete || snap.Scan == nil || len(snap.Scan.Run.Ports) != 11 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if _, _, ok, err := database.GetScanRun(started.ID); err != nil || !ok {
		t.Fatalf("expected persisted scan, ok=%v err=%v", ok, err)
	}

	rec = do(t, server, http.MethodPost, "/api/runs/"+started.ID+"/reset", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = do(t, server, http.MethodGet, "/api/runs/"+started.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after reset, got %d", rec.Code)
	}
}

func TestStartValidation(t *testing.T) {
	_, server := newTestServer(t, testutil.NewFakeClock())

	tests := []struct {
		name   string
		path   string
		body   string
		field  string
		expect string
	}{
		{"empty host", "/api/scans", `{"host":"   "}`, "host", validate.MsgHostRequired},
		{"bad host", "/api/pings", `{"host":"not a host"}`, "host", validate.MsgHostInvalid},
		{"bad range", "/api/scans", `{"host":"10.0.0.1","mode":"range","port_range":"x-y"}`, "port_range", validate.MsgRangeInvalid},
		{"bad mode", "/api/scans", `{"host":"10.0.0.1","mode":"full"}`, "mode", "mode must be one of: common range"},
		{"unknown field", "/api/pings", `{"hostname":"x"}`, "body", "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, server, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decode[errorBody](t, rec)
			if body.Fields[tt.field] != tt.expect {
				t.Fatalf("expected %q for %s, got %+v", tt.expect, tt.field, body)
			}
		})
	}
}

func TestSpeedTestConflicts(t *testing.T) {
	clock := testutil.NewGateClock()
	_, server := newTestServer(t, clock)

	rec := do(t, server, http.MethodPost, "/api/speedtests", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	id := decode[startResponse](t, rec).ID

	if rec := do(t, server, http.MethodPost, "/api/speedtests", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while running, got %d", rec.Code)
	}
	if rec := do(t, server, http.MethodPost, "/api/runs/"+id+"/reset", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 resetting a live run, got %d", rec.Code)
	}

	rec = do(t, server, http.MethodGet, "/runs/"+id, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `http-equiv="refresh"`) {
		t.Fatalf("expected refreshing run page, got %d", rec.Code)
	}

	rec = do(t, server, http.MethodPost, "/api/runs/"+id+"/stop", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	rec = do(t, server, http.MethodGet, "/api/runs/"+id+"?wait=1", "")
	snap := decode[runs.Snapshot](t, rec)
	if snap.State != runs.StateStopped {
		t.Fatalf("expected stopped, got %s", snap.State)
	}
}

func TestLookupAPIs(t *testing.T) {
	database, server := newTestServer(t, testutil.NewFakeClock())

	rec := do(t, server, http.MethodGet, "/api/whois/8.8.8.8", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("whois: expected 200, got %d", rec.Code)
	}
	loc := decode[geo.Location](t, rec)
	if loc.Org != "Google LLC" || loc.Region != geo.NotAvailable {
		t.Fatalf("unexpected whois: %+v", loc)
	}

	rec = do(t, server, http.MethodGet, "/api/whois/999.1.1.1", "")
	if rec.Code != http.StatusBadRequest || decode[errorBody](t, rec).Error != validate.MsgIPInvalid {
		t.Fatalf("expected 400 invalid ip, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, server, http.MethodGet, "/api/mac/00-1b-63-84-45-e6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mac: expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Apple, Inc.") || !strings.Contains(body, "00:1B:63:84:45:E6") {
		t.Fatalf("unexpected mac body: %s", body)
	}

	rec = do(t, server, http.MethodGet, "/api/dns?domain=Google.com&type=mx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dns: expected 200, got %d", rec.Code)
	}
	result := decode[DNSResult](t, rec)
	if result.Domain != "google.com" || result.Type != "MX" || len(result.Records) == 0 {
		t.Fatalf("unexpected dns result: %+v", result)
	}

	rec = do(t, server, http.MethodGet, "/api/dns?domain=", "")
	if rec.Code != http.StatusBadRequest || decode[errorBody](t, rec).Fields["domain"] != validate.MsgDomainRequired {
		t.Fatalf("expected 400 missing domain, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, server, http.MethodGet, "/api/myip", "")
	if rec.Code != http.StatusOK || decode[geo.MyLocation](t, rec).IPv4 != "203.0.113.7" {
		t.Fatalf("unexpected myip: %d %s", rec.Code, rec.Body.String())
	}

	lookups, err := database.ListLookups("", 0)
	if err != nil {
		t.Fatalf("list lookups: %v", err)
	}
	if len(lookups) != 4 {
		t.Fatalf("expected 4 recorded lookups, got %d", len(lookups))
	}
}

func TestWhoisUpstreamFailures(t *testing.T) {
	_, server := newTestServer(t, testutil.NewFakeClock())

	server.Resolver = fakeResolver{err: &geo.LookupError{Reason: geo.ReasonReserved}}
	rec := do(t, server, http.MethodGet, "/api/whois/10.0.0.1", "")
	if rec.Code != http.StatusBadGateway || decode[errorBody](t, rec).Error != geo.ReasonReserved {
		t.Fatalf("expected 502 reserved, got %d %s", rec.Code, rec.Body.String())
	}

	server.Resolver = fakeResolver{err: errors.New("dial tcp: connection refused")}
	rec = do(t, server, http.MethodGet, "/api/whois/8.8.8.8", "")
	if rec.Code != http.StatusBadGateway || decode[errorBody](t, rec).Error != geo.ReasonFetchFailed {
		t.Fatalf("expected 502 fetch failed, got %d %s", rec.Code, rec.Body.String())
	}

	server.Locator = fakeLocator{err: &geo.LookupError{Reason: geo.ReasonNoAddress}}
	rec = do(t, server, http.MethodGet, "/tools/my-location", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), geo.ReasonNoAddress) {
		t.Fatalf("expected error shown on page, got %d", rec.Code)
	}
}

func TestToolPages(t *testing.T) {
	_, server := newTestServer(t, testutil.NewFakeClock())

	pages := map[string]string{
		"/":                                       "Port Scanner",
		"/tools/my-location":                      "203.0.113.7",
		"/tools/ip-whois":                         "IP WHOIS lookup",
		"/tools/ip-whois?ip=8.8.8.8":              "Google LLC",
		"/tools/ip-whois?ip=nope":                 validate.MsgIPInvalid,
		"/tools/mac-lookup?mac=00:50:56:aa:bb:cc": "VMware, Inc.",
		"/tools/dns-lookup?domain=github.com":     "140.82.",
		"/tools/port-scanner":                     "Start scan",
		"/tools/ping-test":                        "Start ping",
		"/tools/speed-test":                       "Start test",
		"/history":                                "No scans recorded.",
	}
	for path, want := range pages {
		rec := do(t, server, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("%s: expected %q in body", path, want)
		}
	}
}

func TestScanFormRedirectsToRun(t *testing.T) {
	_, server := newTestServer(t, testutil.NewFakeClock())

	form := url.Values{"host": {"192.168.1.1"}, "mode": {"common"}}
	req := httptest.NewRequest(http.MethodPost, "http://localhost:8080/tools/port-scanner", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/runs/") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	id := strings.TrimPrefix(loc, "/runs/")
	if _, err := server.Runs.Wait(context.Background(), id); err != nil {
		t.Fatalf("wait: %v", err)
	}

	rec = do(t, server, http.MethodGet, loc, "")
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "Port scan") || !strings.Contains(body, "PostgreSQL") {
		t.Fatalf("unexpected run page: %d", rec.Code)
	}
	if strings.Contains(body, `http-equiv="refresh"`) {
		t.Fatalf("finished run must not refresh")
	}

	bad := url.Values{"host": {""}}
	req = httptest.NewRequest(http.MethodPost, "http://localhost:8080/tools/ping-test", strings.NewReader(bad.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), validate.MsgHostRequired) {
		t.Fatalf("expected form error, got %d", rec.Code)
	}
}

func TestHistoryAndExport(t *testing.T) {
	_, server := newTestServer(t, testutil.NewFakeClock())

	id := decode[startResponse](t, do(t, server, http.MethodPost, "/api/pings", `{"host":"example.com"}`)).ID
	do(t, server, http.MethodGet, "/api/runs/"+id+"?wait=1", "")

	rec := do(t, server, http.MethodGet, "/history", "")
	if !strings.Contains(rec.Body.String(), "example.com") {
		t.Fatalf("expected ping in history page")
	}

	rec = do(t, server, http.MethodGet, "/api/export?format=csv", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "kind,run_id") {
		t.Fatalf("unexpected csv export: %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec := do(t, server, http.MethodGet, "/api/export?format=xml", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rec.Code)
	}

	rec = do(t, server, http.MethodGet, "/api/history", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"pings"`) {
		t.Fatalf("unexpected history api: %s", rec.Body.String())
	}

	if rec := do(t, server, http.MethodDelete, "/api/history", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = do(t, server, http.MethodGet, "/history", "")
	if !strings.Contains(rec.Body.String(), "No pings recorded.") {
		t.Fatalf("expected empty history after delete")
	}
}
