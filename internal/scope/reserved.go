package scope

// IPv4 special-purpose blocks that public geolocation services refuse.
var reservedBlocks = []string{
	"0.0.0.0/8 This-Network",
	"10.0.0.0/8 Private-Use",
	"100.64.0.0/10 Shared-Address-Space",
	"127.0.0.0/8 Loopback",
	"169.254.0.0/16 Link-Local",
	"172.16.0.0/12 Private-Use",
	"192.0.0.0/24 IETF-Protocol-Assignments",
	"192.0.2.0/24 Documentation",
	"192.168.0.0/16 Private-Use",
	"198.18.0.0/15 Benchmarking",
	"198.51.100.0/24 Documentation",
	"203.0.113.0/24 Documentation",
	"224.0.0.0/4 Multicast",
	"240.0.0.0/4 Reserved",
}

// Reserved returns a matcher over the IPv4 special-purpose registry.
func Reserved() *Matcher {
	m, err := NewMatcher(reservedBlocks)
	if err != nil {
		panic(err)
	}
	return m
}
