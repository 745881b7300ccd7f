package db

import "time"

// ScanRun is a finished simulated port scan.
type ScanRun struct {
	ID         int64
	RunID      string
	Host       string
	Mode       string
	PortRange  string
	DurationMs int64
	OpenPorts  int
	TotalPorts int
	CreatedAt  time.Time
}

// ScanPort is one port result of a scan, kept in scan order by Position.
type ScanPort struct {
	ID          int64
	ScanRunID   int64
	Position    int
	Port        int
	Status      string
	Service     string
	Description string
}

// PingRun is a finished simulated ping with its summary statistics.
type PingRun struct {
	ID             int64
	RunID          string
	Host           string
	Sent           int
	Received       int
	Lost           int
	LossPercentage float64
	MinMs          int
	MaxMs          int
	AvgMs          int
	Stopped        bool
	CreatedAt      time.Time
}

// PingSample is one echo of a ping run.
type PingSample struct {
	ID          int64
	PingRunID   int64
	Sequence    int
	RoundTripMs int
	Status      string
}

// SpeedTest is the frozen outcome of a simulated speed test.
type SpeedTest struct {
	ID           int64
	RunID        string
	DownloadMbps float64
	UploadMbps   float64
	PingMs       int
	JitterMs     int
	ServerLabel  string
	ClientIP     string
	CreatedAt    time.Time
}

// Lookup kinds.
const (
	LookupWhois = "whois"
	LookupMyIP  = "myip"
	LookupMAC   = "mac"
	LookupDNS   = "dns"
)

// Lookup records a WHOIS, own-address, MAC or DNS query.
type Lookup struct {
	ID        int64
	Kind      string
	Query     string
	Summary   string
	CreatedAt time.Time
}
