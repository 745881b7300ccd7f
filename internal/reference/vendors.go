package reference

import (
	"strings"
)

// VendorRecord is an OUI registry entry. For lookups, MAC carries the
// normalised address that was asked about.
type VendorRecord struct {
	MAC            string `json:"mac"`
	OUIPrefix      string `json:"oui"`
	Company        string `json:"company"`
	Address        string `json:"address"`
	Country        string `json:"country"`
	AssignmentType string `json:"type"`
}

const (
	UnknownVendor = "Unknown Vendor"
	NotAvailable  = "Not available"
)

var vendors = map[string]VendorRecord{
	"00:1B:63": {OUIPrefix: "00:1B:63", Company: "Apple, Inc.", Address: "1 Infinite Loop, Cupertino, CA 95014, US", Country: "United States", AssignmentType: "MA-L"},
	"00:50:56": {OUIPrefix: "00:50:56", Company: "VMware, Inc.", Address: "3401 Hillview Ave, Palo Alto, CA 94304, US", Country: "United States", AssignmentType: "MA-L"},
	"00:0C:29": {OUIPrefix: "00:0C:29", Company: "VMware, Inc.", Address: "3401 Hillview Ave, Palo Alto, CA 94304, US", Country: "United States", AssignmentType: "MA-L"},
	"00:1A:A0": {OUIPrefix: "00:1A:A0", Company: "Dell Inc.", Address: "One Dell Way, Round Rock, TX 78682, US", Country: "United States", AssignmentType: "MA-L"},
	"00:15:5D": {OUIPrefix: "00:15:5D", Company: "Microsoft Corporation", Address: "One Microsoft Way, Redmond, WA 98052, US", Country: "United States", AssignmentType: "MA-L"},
}

func stripMAC(mac string) string {
	return strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(mac))
}

func pairs(hex string) string {
	if len(hex) < 2 {
		return hex
	}
	parts := make([]string, 0, len(hex)/2)
	for i := 0; i+2 <= len(hex); i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	return strings.Join(parts, ":")
}

// FormatMAC upper-cases mac and rewrites its separators as colons.
func FormatMAC(mac string) string {
	return pairs(stripMAC(mac))
}

// OUI returns the first three octets of mac in canonical form.
func OUI(mac string) string {
	clean := stripMAC(mac)
	if len(clean) > 6 {
		clean = clean[:6]
	}
	return pairs(clean)
}

// LookupVendor resolves the OUI of mac. Callers validate mac first.
func LookupVendor(mac string) VendorRecord {
	rec, ok := vendors[OUI(mac)]
	if !ok {
		return VendorRecord{
			MAC:            FormatMAC(mac),
			OUIPrefix:      OUI(mac),
			Company:        UnknownVendor,
			Address:        NotAvailable,
			Country:        NotAvailable,
			AssignmentType: "Unknown",
		}
	}
	rec.MAC = FormatMAC(mac)
	return rec
}

// KnownVendor reports whether the table holds mac's OUI.
func KnownVendor(mac string) bool {
	_, ok := vendors[OUI(mac)]
	return ok
}
