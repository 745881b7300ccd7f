// Package geo resolves IPv4 addresses to locations, either through the public
// ipapi.co / ipify services or from local MaxMind databases.
package geo

import (
	"context"
	"strings"

	"github.com/sloppy/nettools/internal/scope"
	"github.com/sloppy/nettools/internal/validate"
)

const (
	// NotAvailable fills absent WHOIS fields and missing addresses.
	NotAvailable = "Not available"
	// Unknown fills absent fields of the caller's own location.
	Unknown = "Unknown"
	// UnknownCountryCode stands in for a missing country code.
	UnknownCountryCode = "XX"
)

// Location is the subset of the ipapi.co response the tools display.
type Location struct {
	IP          string  `json:"ip"`
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	Org         string  `json:"org"`
	ASN         string  `json:"asn"`
	Postal      string  `json:"postal"`
	Hostname    string  `json:"hostname,omitempty"`
}

// WithPlaceholders returns a copy with every empty string field set to p.
// Hostname is optional and left alone.
func (l Location) WithPlaceholders(p string) Location {
	for _, f := range []*string{&l.IP, &l.CountryName, &l.CountryCode, &l.City, &l.Region, &l.Timezone, &l.Org, &l.ASN, &l.Postal} {
		if *f == "" {
			*f = p
		}
	}
	return l
}

// Summary joins organisation, city and country into one line, skipping
// placeholders.
func (l Location) Summary() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Org, l.City, l.CountryName} {
		if p != "" && p != NotAvailable && p != Unknown {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// MyLocation describes the caller's own public addresses.
type MyLocation struct {
	IPv4     string   `json:"ipv4"`
	IPv6     string   `json:"ipv6,omitempty"`
	Location Location `json:"location"`
}

// LookupError is a failure reported by, or on behalf of, the upstream service.
// Reason is safe to show to users. Block names the special-purpose range
// behind ReasonReserved.
type LookupError struct {
	Reason string
	Block  string
}

func (e *LookupError) Error() string {
	return e.Reason
}

// Resolver looks up a single address.
type Resolver interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

// Locator discovers the caller's own addresses and location.
type Locator interface {
	Self(ctx context.Context) (MyLocation, error)
}

// checkReserved canonicalises ip and refuses it when reserved covers it.
func checkReserved(reserved *scope.Matcher, ip string) (string, error) {
	ip = validate.CanonicalIPv4(strings.TrimSpace(ip))
	if reserved == nil {
		return ip, nil
	}
	if rule, ok := reserved.Match(ip); ok {
		return ip, &LookupError{Reason: ReasonReserved, Block: rule.Label}
	}
	return ip, nil
}
