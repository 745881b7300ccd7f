package geo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/sloppy/nettools/internal/scope"
	"github.com/sloppy/nettools/internal/validate"
)

// MMDB resolves addresses from local GeoLite2 City and ASN databases.
type MMDB struct {
	city     *geoip2.Reader
	asn      *geoip2.Reader
	reserved *scope.Matcher
}

// OpenMMDB opens the City database and, when asnPath is set, the ASN one.
func OpenMMDB(cityPath, asnPath string) (*MMDB, error) {
	if cityPath == "" {
		return nil, errors.New("geoip city database path is required")
	}
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("open city db: %w", err)
	}
	m := &MMDB{city: city, reserved: scope.Reserved()}
	if asnPath != "" {
		asn, err := geoip2.Open(asnPath)
		if err != nil {
			city.Close()
			return nil, fmt.Errorf("open asn db: %w", err)
		}
		m.asn = asn
	}
	return m, nil
}

// Lookup answers from the databases. It does not block, so ctx is only
// checked once up front.
func (m *MMDB) Lookup(ctx context.Context, ip string) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	ip = validate.CanonicalIPv4(strings.TrimSpace(ip))
	addr := net.ParseIP(ip)
	if addr == nil || addr.To4() == nil {
		return Location{}, &LookupError{Reason: ReasonInvalidIP}
	}
	ip, err := checkReserved(m.reserved, ip)
	if err != nil {
		return Location{}, err
	}

	rec, err := m.city.City(addr)
	if err != nil {
		return Location{}, fmt.Errorf("city lookup: %w", err)
	}
	loc := Location{
		IP:          ip,
		CountryName: rec.Country.Names["en"],
		CountryCode: rec.Country.IsoCode,
		City:        rec.City.Names["en"],
		Latitude:    rec.Location.Latitude,
		Longitude:   rec.Location.Longitude,
		Timezone:    rec.Location.TimeZone,
		Postal:      rec.Postal.Code,
	}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].Names["en"]
	}

	if m.asn != nil {
		asn, err := m.asn.ASN(addr)
		if err != nil {
			return Location{}, fmt.Errorf("asn lookup: %w", err)
		}
		if asn.AutonomousSystemNumber != 0 {
			loc.ASN = fmt.Sprintf("AS%d", asn.AutonomousSystemNumber)
		}
		loc.Org = asn.AutonomousSystemOrganization
	}
	return loc, nil
}

// Close releases both databases.
func (m *MMDB) Close() error {
	var errs []error
	if m.city != nil {
		errs = append(errs, m.city.Close())
	}
	if m.asn != nil {
		errs = append(errs, m.asn.Close())
	}
	return errors.Join(errs...)
}
