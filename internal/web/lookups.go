package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/geo"
	"github.com/sloppy/nettools/internal/reference"
	"github.com/sloppy/nettools/internal/validate"
)

// DNSResult is the response of a canned DNS lookup.
type DNSResult struct {
	Domain      string                `json:"domain"`
	Type        string                `json:"type"`
	Description string                `json:"description"`
	Records     []reference.DNSRecord `json:"records"`
}

func (s *Server) recordLookup(kind, query, summary string) {
	if s.DB == nil {
		return
	}
	if _, err := s.DB.RecordLookup(kind, query, summary); err != nil {
		s.Logger.Error("record lookup", "kind", kind, "err", err)
	}
}

// upstreamError keeps LookupErrors and replaces anything else with fallback.
func (s *Server) upstreamError(err error, fallback string) error {
	var lerr *geo.LookupError
	if errors.As(err, &lerr) {
		if lerr.Block != "" {
			s.Logger.Info("reserved address rejected", "block", lerr.Block)
		}
		return lerr
	}
	s.Logger.Warn("upstream lookup failed", "err", err)
	return &geo.LookupError{Reason: fallback}
}

func (s *Server) myLocation(ctx context.Context) (geo.MyLocation, error) {
	if s.Locator == nil {
		return geo.MyLocation{}, &geo.LookupError{Reason: geo.ReasonNoAddress}
	}
	me, err := s.Locator.Self(ctx)
	if err != nil {
		return geo.MyLocation{}, s.upstreamError(err, geo.ReasonNoAddress)
	}
	s.recordLookup(db.LookupMyIP, me.IPv4, me.Location.Summary())
	return me, nil
}

func (s *Server) whois(ctx context.Context, ip string) (geo.Location, error) {
	req := validate.IPRequest{IP: ip}
	if err := req.Validate(); err != nil {
		return geo.Location{}, err
	}
	loc, err := s.Resolver.Lookup(ctx, req.IP)
	if err != nil {
		return geo.Location{}, s.upstreamError(err, geo.ReasonFetchFailed)
	}
	loc = loc.WithPlaceholders(geo.NotAvailable)
	s.recordLookup(db.LookupWhois, req.IP, loc.Summary())
	return loc, nil
}

func (s *Server) macLookup(mac string) (reference.VendorRecord, error) {
	req := validate.MACRequest{MAC: mac}
	if err := req.Validate(); err != nil {
		return reference.VendorRecord{}, err
	}
	vendor := reference.LookupVendor(req.MAC)
	s.recordLookup(db.LookupMAC, vendor.MAC, vendor.Company)
	return vendor, nil
}

func (s *Server) dnsLookup(domain, recordType string) (DNSResult, error) {
	req := validate.DNSRequest{Domain: domain, Type: recordType}
	if err := req.Validate(); err != nil {
		return DNSResult{}, err
	}
	records := reference.LookupDNS(req.Domain, req.Type)
	s.recordLookup(db.LookupDNS, req.Type+" "+req.Domain, fmt.Sprintf("%d record(s)", len(records)))
	return DNSResult{
		Domain:      strings.ToLower(req.Domain),
		Type:        req.Type,
		Description: reference.RecordTypeDescription(req.Type),
		Records:     records,
	}, nil
}

func (s *Server) handleAPIMyIP(w http.ResponseWriter, r *http.Request) {
	me, err := s.myLocation(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, me, http.StatusOK)
}

func (s *Server) handleAPIWhois(w http.ResponseWriter, r *http.Request) {
	loc, err := s.whois(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, loc, http.StatusOK)
}

func (s *Server) handleAPIMAC(w http.ResponseWriter, r *http.Request) {
	vendor, err := s.macLookup(chi.URLParam(r, "mac"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, vendor, http.StatusOK)
}

func (s *Server) handleAPIDNS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := s.dnsLookup(query.Get("domain"), query.Get("type"))
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, result, http.StatusOK)
}

func (s *Server) handleMyLocationPage(w http.ResponseWriter, r *http.Request) {
	me, err := s.myLocation(r.Context())
	render(w, r, myLocationPage(me, err))
}

func (s *Server) handleWhoisPage(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if !r.URL.Query().Has("ip") {
		render(w, r, whoisPage("", nil, nil))
		return
	}
	loc, err := s.whois(r.Context(), ip)
	if err != nil {
		render(w, r, whoisPage(ip, nil, err))
		return
	}
	render(w, r, whoisPage(ip, &loc, nil))
}

func (s *Server) handleMACPage(w http.ResponseWriter, r *http.Request) {
	mac := r.URL.Query().Get("mac")
	if !r.URL.Query().Has("mac") {
		render(w, r, macPage("", nil, nil))
		return
	}
	vendor, err := s.macLookup(mac)
	if err != nil {
		render(w, r, macPage(mac, nil, err))
		return
	}
	render(w, r, macPage(mac, &vendor, nil))
}

func (s *Server) handleDNSPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	domain, recordType := query.Get("domain"), query.Get("type")
	if !query.Has("domain") {
		render(w, r, dnsPage("", "A", nil, nil))
		return
	}
	result, err := s.dnsLookup(domain, recordType)
	if err != nil {
		render(w, r, dnsPage(domain, recordType, nil, err))
		return
	}
	render(w, r, dnsPage(domain, result.Type, &result, nil))
}
