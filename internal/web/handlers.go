package web

import "net/http"

type tool struct {
	Name        string
	Path        string
	Description string
}

var tools = []tool{
	{"My IP & Location", "/tools/my-location", "Your public IPv4/IPv6 addresses and approximate location."},
	{"IP WHOIS", "/tools/ip-whois", "Organisation, ASN and location for any IPv4 address."},
	{"MAC Lookup", "/tools/mac-lookup", "Identify the vendor of a network interface."},
	{"DNS Lookup", "/tools/dns-lookup", "A, AAAA, CNAME, MX, NS, TXT, SOA and PTR records."},
	{"Port Scanner", "/tools/port-scanner", "Check common services or a small port range."},
	{"Ping Test", "/tools/ping-test", "Round-trip latency and packet loss over 20 samples."},
	{"Speed Test", "/tools/speed-test", "Download, upload, ping and jitter."},
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	render(w, r, homePage(tools))
}
