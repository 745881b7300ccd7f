package runs

import (
	"github.com/sloppy/nettools/internal/db"
	"github.com/sloppy/nettools/internal/ping"
	"github.com/sloppy/nettools/internal/speedtest"
)

// DBStore writes finished runs to the history database.
type DBStore struct {
	DB *db.DB
}

// NewDBStore returns a Store backed by d.
func NewDBStore(d *db.DB) *DBStore {
	return &DBStore{DB: d}
}

func (s *DBStore) SaveScan(id string, scan ScanState) error {
	ports := make([]db.ScanPort, 0, len(scan.Run.Ports))
	for _, p := range scan.Run.Ports {
		ports = append(ports, db.ScanPort{
			Port:        p.Port,
			Status:      string(p.Status),
			Service:     p.Service,
			Description: p.Description,
		})
	}
	_, err := s.DB.SaveScanRun(db.ScanRun{
		RunID:      id,
		Host:       scan.Run.Host,
		Mode:       string(scan.Mode),
		PortRange:  scan.PortRange,
		DurationMs: scan.Run.ScanDurationMs,
	}, ports)
	return err
}

func (s *DBStore) SavePing(id string, snap ping.Snapshot) error {
	samples := make([]db.PingSample, 0, len(snap.Samples))
	for _, smp := range snap.Samples {
		samples = append(samples, db.PingSample{
			Sequence:    smp.Sequence,
			RoundTripMs: smp.RoundTripMs,
			Status:      string(smp.Status),
		})
	}
	st := snap.Stats
	_, err := s.DB.SavePingRun(db.PingRun{
		RunID:          id,
		Host:           snap.Host,
		Sent:           st.Sent,
		Received:       st.Received,
		Lost:           st.Lost,
		LossPercentage: st.LossPercentage,
		MinMs:          st.MinMs,
		MaxMs:          st.MaxMs,
		AvgMs:          st.AvgMs,
		Stopped:        snap.Stopped,
	}, samples)
	return err
}

func (s *DBStore) SaveSpeed(id string, out speedtest.Outcome) error {
	_, err := s.DB.SaveSpeedTest(db.SpeedTest{
		RunID:        id,
		DownloadMbps: out.DownloadMbps,
		UploadMbps:   out.UploadMbps,
		PingMs:       out.PingMs,
		JitterMs:     out.JitterMs,
		ServerLabel:  out.ServerLabel,
		ClientIP:     out.ClientIP,
	})
	return err
}
