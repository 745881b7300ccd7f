// Package reference holds the fixed tables the simulated tools answer from.
package reference

// PortInfo names the service conventionally bound to a TCP port.
type PortInfo struct {
	Port        int    `json:"port"`
	Service     string `json:"service"`
	Description string `json:"description"`
}

const (
	UnknownService            = "Unknown"
	UnknownServiceDescription = "Unknown service"
)

var commonPorts = []PortInfo{
	{Port: 21, Service: "FTP", Description: "File Transfer Protocol"},
	{Port: 22, Service: "SSH", Description: "Secure Shell"},
	{Port: 23, Service: "Telnet", Description: "Telnet Protocol"},
	{Port: 25, Service: "SMTP", Description: "Simple Mail Transfer Protocol"},
	{Port: 53, Service: "DNS", Description: "Domain Name System"},
	{Port: 80, Service: "HTTP", Description: "Hypertext Transfer Protocol"},
	{Port: 110, Service: "POP3", Description: "Post Office Protocol v3"},
	{Port: 143, Service: "IMAP", Description: "Internet Message Access Protocol"},
	{Port: 443, Service: "HTTPS", Description: "HTTP Secure"},
	{Port: 993, Service: "IMAPS", Description: "IMAP over SSL"},
	{Port: 995, Service: "POP3S", Description: "POP3 over SSL"},
	{Port: 3389, Service: "RDP", Description: "Remote Desktop Protocol"},
	{Port: 5432, Service: "PostgreSQL", Description: "PostgreSQL Database"},
	{Port: 3306, Service: "MySQL", Description: "MySQL Database"},
	{Port: 1433, Service: "MSSQL", Description: "Microsoft SQL Server"},
	{Port: 27017, Service: "MongoDB", Description: "MongoDB Database"},
}

var portIndex = func() map[int]PortInfo {
	m := make(map[int]PortInfo, len(commonPorts))
	for _, p := range commonPorts {
		m[p.Port] = p
	}
	return m
}()

// CommonPorts returns the common-port table in its fixed order.
func CommonPorts() []PortInfo {
	return append([]PortInfo(nil), commonPorts...)
}

// IsCommonPort reports whether port is in the common-port table.
func IsCommonPort(port int) bool {
	_, ok := portIndex[port]
	return ok
}

// LookupService returns the table entry for port, or the Unknown placeholder.
func LookupService(port int) PortInfo {
	if p, ok := portIndex[port]; ok {
		return p
	}
	return PortInfo{Port: port, Service: UnknownService, Description: UnknownServiceDescription}
}
