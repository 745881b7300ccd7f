package validate

import "strings"

// IPRequest is a WHOIS lookup as submitted by a user.
type IPRequest struct {
	IP string `json:"ip" validate:"required,ipv4loose"`
}

// Validate trims and checks the address, then drops leading zeros from its
// octets so downstream parsers see a canonical dotted quad.
func (r *IPRequest) Validate() error {
	r.IP = strings.TrimSpace(r.IP)
	if err := Struct(r); err != nil {
		return err
	}
	r.IP = CanonicalIPv4(r.IP)
	return nil
}

// MACRequest is a vendor lookup as submitted by a user.
type MACRequest struct {
	MAC string `json:"mac" validate:"required,macaddr"`
}

// Validate trims and checks the address.
func (r *MACRequest) Validate() error {
	r.MAC = strings.TrimSpace(r.MAC)
	return Struct(r)
}

// DNSRequest is a record lookup. Type defaults to A and is upper-cased.
type DNSRequest struct {
	Domain string `json:"domain" validate:"required,hostname_label"`
	Type   string `json:"type" validate:"dnstype"`
}

// Validate normalises and checks the request.
func (r *DNSRequest) Validate() error {
	r.Domain = strings.TrimSpace(r.Domain)
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	if r.Type == "" {
		r.Type = "A"
	}
	return Struct(r)
}
