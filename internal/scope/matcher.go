// Package scope matches addresses against lists of IPs and CIDR blocks.
package scope

import (
	"fmt"
	"net/netip"
	"strings"
)

type Rule struct {
	Definition string
	Type       string // "ip" or "cidr"
	Label      string
	prefix     netip.Prefix
	addr       netip.Addr
}

type Matcher struct {
	rules []Rule
}

// NewMatcher parses each definition as a CIDR block or a single address.
// An optional label follows a space: "10.0.0.0/8 Private-Use".
func NewMatcher(definitions []string) (*Matcher, error) {
	var rules []Rule
	for _, def := range definitions {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		spec, label, _ := strings.Cut(def, " ")
		rule := Rule{Definition: spec, Label: strings.TrimSpace(label)}

		if prefix, err := netip.ParsePrefix(spec); err == nil {
			rule.Type = "cidr"
			rule.prefix = prefix.Masked()
			rules = append(rules, rule)
			continue
		}

		if addr, err := netip.ParseAddr(spec); err == nil {
			rule.Type = "ip"
			rule.addr = addr
			rules = append(rules, rule)
			continue
		}

		return nil, fmt.Errorf("invalid scope definition %q", def)
	}

	return &Matcher{rules: rules}, nil
}

// Match returns the first rule covering ip. Unparseable input never matches.
func (m *Matcher) Match(ip string) (Rule, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return Rule{}, false
	}
	addr = addr.Unmap()

	for _, rule := range m.rules {
		switch rule.Type {
		case "cidr":
			if rule.prefix.Contains(addr) {
				return rule, true
			}
		case "ip":
			if rule.addr == addr {
				return rule, true
			}
		}
	}

	return Rule{}, false
}

// Contains reports whether any rule covers ip.
func (m *Matcher) Contains(ip string) bool {
	_, ok := m.Match(ip)
	return ok
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}
