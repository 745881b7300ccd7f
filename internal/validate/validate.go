// Package validate gates user input before any lookup or simulation starts.
package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ipv4Pattern     = regexp.MustCompile(`^(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	macPattern      = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$|^([0-9A-Fa-f]{2}[:-]){2}([0-9A-Fa-f]{2})$`)
)

// IsValidIPv4 reports whether s is a dotted quad with octets in 0..255.
// Leading zeros are accepted ("010.1.1.1").
func IsValidIPv4(s string) bool {
	return ipv4Pattern.MatchString(s)
}

// CanonicalIPv4 strips leading zeros from each octet of a valid IPv4 literal
// ("010.0.0.01" becomes "10.0.0.1"). Anything else is returned unchanged.
func CanonicalIPv4(s string) string {
	if !IsValidIPv4(s) {
		return s
	}
	octets := strings.Split(s, ".")
	for i, o := range octets {
		n, _ := strconv.Atoi(o)
		octets[i] = strconv.Itoa(n)
	}
	return strings.Join(octets, ".")
}

// IsValidHostname reports whether every dot-separated label of s is 1..63
// alphanumerics with hyphens allowed only inside the label.
func IsValidHostname(s string) bool {
	return hostnamePattern.MatchString(s)
}

// IsValidHost accepts an IPv4 literal or a hostname.
func IsValidHost(s string) bool {
	return IsValidIPv4(s) || IsValidHostname(s)
}

// IsValidMAC accepts six colon/hyphen separated hex pairs, or just the first
// three (the OUI).
func IsValidMAC(s string) bool {
	return macPattern.MatchString(s)
}

// Blank reports whether s is empty after trimming.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
