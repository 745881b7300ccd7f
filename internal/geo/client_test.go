package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sloppy/nettools/internal/testutil"
)

const googleDNS = `{"ip":"8.8.8.8","country_name":"United States","country_code":"US","city":"Mountain View","region":"California","latitude":37.42,"longitude":-122.08,"timezone":"America/Los_Angeles","org":"GOOGLE","asn":"AS15169","postal":"94043"}`

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewClient(srv.Client())
	c.BaseURL = srv.URL
	c.IPv4URL = srv.URL + "/ipify4"
	c.IPv6URL = srv.URL + "/ipify6"
	return c
}

func TestLookupSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/8.8.8.8/json/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(googleDNS))
	})
	c := newTestClient(t, mux)

	loc, err := c.Lookup(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if loc.City != "Mountain View" || loc.ASN != "AS15169" || loc.Latitude != 37.42 {
		t.Fatalf("unexpected location: %+v", loc)
	}
}

func TestLookupErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/1.2.3.4/json/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"1.2.3.4","error":true,"reason":"RateLimited"}`))
	})
	mux.HandleFunc("/1.2.3.5/json/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":true}`))
	})
	mux.HandleFunc("/1.2.3.6/json/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	var hits atomic.Int32
	mux.HandleFunc("/10.0.0.1/json/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	c := newTestClient(t, mux)

	cases := map[string]string{
		"1.2.3.4":  "RateLimited",
		"1.2.3.5":  "Invalid IP address",
		"1.2.3.6":  "Failed to fetch WHOIS data",
		"10.0.0.1": "Reserved IP Address",
	}
	for ip, want := range cases {
		_, err := c.Lookup(context.Background(), ip)
		var le *LookupError
		if !errors.As(err, &le) || le.Reason != want {
			t.Fatalf("Lookup(%s) err=%v want reason %q", ip, err, want)
		}
	}
	if hits.Load() != 0 {
		t.Fatal("reserved address must not reach upstream")
	}
}

func TestLookupLeadingZeros(t *testing.T) {
	mux := http.NewServeMux()
	var hits atomic.Int32
	mux.HandleFunc("/8.8.8.8/json/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(googleDNS))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(googleDNS))
	})
	c := newTestClient(t, mux)

	reserved := map[string]string{
		"127.0.0.01":    "Loopback",
		"010.0.0.1":     "Private-Use",
		"192.168.001.1": "Private-Use",
	}
	for ip, block := range reserved {
		_, err := c.Lookup(context.Background(), ip)
		var le *LookupError
		if !errors.As(err, &le) || le.Reason != ReasonReserved || le.Block != block {
			t.Fatalf("Lookup(%s) err=%v want reserved %s", ip, err, block)
		}
	}
	if hits.Load() != 0 {
		t.Fatalf("reserved addresses reached upstream %d times", hits.Load())
	}

	loc, err := c.Lookup(context.Background(), "8.8.8.08")
	if err != nil || loc.City != "Mountain View" {
		t.Fatalf("Lookup(8.8.8.08) = %+v, %v", loc, err)
	}
	if hits.Load() != 0 {
		t.Fatal("padded address should be requested in canonical form")
	}
}

func TestLookupTransportError(t *testing.T) {
	c := NewClient(nil)
	c.BaseURL = "http://127.0.0.1:1"
	_, err := c.Lookup(context.Background(), "8.8.8.8")
	var le *LookupError
	if err == nil || errors.As(err, &le) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSelfPrimaryPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipify4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"8.8.8.8"}`))
	})
	mux.HandleFunc("/ipify6", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"2001:4860:4860::8888"}`))
	})
	mux.HandleFunc("/8.8.8.8/json/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"8.8.8.8","country_name":"United States","city":"Mountain View"}`))
	})
	c := newTestClient(t, mux)

	me, err := c.Self(context.Background())
	if err != nil {
		t.Fatalf("self: %v", err)
	}
	if me.IPv4 != "8.8.8.8" || me.IPv6 != "2001:4860:4860::8888" {
		t.Fatalf("addresses: %+v", me)
	}
	if me.Location.City != "Mountain View" || me.Location.Region != Unknown || me.Location.CountryCode != UnknownCountryCode {
		t.Fatalf("placeholders not applied: %+v", me.Location)
	}
}

func TestSelfFallsBackToIPAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipify4", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/ipify6", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/json/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"2001:db8::10","country_name":"Netherlands","country_code":"NL"}`))
	})
	c := newTestClient(t, mux)

	me, err := c.Self(context.Background())
	if err != nil {
		t.Fatalf("self: %v", err)
	}
	if me.IPv4 != NotAvailable || me.IPv6 != "2001:db8::10" {
		t.Fatalf("addresses: %+v", me)
	}
	if me.Location.CountryCode != "NL" || me.Location.City != Unknown {
		t.Fatalf("location: %+v", me.Location)
	}
}

func TestSelfNoAddress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	c := newTestClient(t, mux)

	_, err := c.Self(context.Background())
	var le *LookupError
	if !errors.As(err, &le) || le.Reason != "Failed to fetch IP address information" {
		t.Fatalf("err=%v", err)
	}
}

func TestLocationSummary(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Location{Org: "Google LLC", City: "Mountain View", CountryName: "United States"}, "Google LLC, Mountain View, United States"},
		{Location{Org: NotAvailable, City: "Sydney", CountryName: "Australia"}, "Sydney, Australia"},
		{Location{Org: Unknown, City: Unknown, CountryName: Unknown}, ""},
		{Location{}.WithPlaceholders(NotAvailable), ""},
	}
	for _, tt := range tests {
		if got := tt.loc.Summary(); got != tt.want {
			t.Errorf("Summary(%+v) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestWithPlaceholders(t *testing.T) {
	loc := Location{IP: "8.8.8.8", City: "Mountain View"}.WithPlaceholders(NotAvailable)
	if loc.IP != "8.8.8.8" || loc.City != "Mountain View" || loc.Org != NotAvailable || loc.Postal != NotAvailable {
		t.Fatalf("unexpected: %+v", loc)
	}
	if loc.Hostname != "" {
		t.Fatalf("hostname should stay empty, got %q", loc.Hostname)
	}
}

func TestOpenMMDBMissing(t *testing.T) {
	if _, err := OpenMMDB("", ""); err == nil {
		t.Fatal("expected error for empty path")
	}
	dir := testutil.TempDir(t)
	_, err := OpenMMDB(filepath.Join(dir, "missing.mmdb"), "")
	if err == nil || !strings.Contains(err.Error(), "open city db") {
		t.Fatalf("err=%v", err)
	}
}
