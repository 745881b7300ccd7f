package ping

import "math"

// Stats summarises a run. Latency fields cover successful samples only.
type Stats struct {
	Sent           int     `json:"sent"`
	Received       int     `json:"received"`
	Lost           int     `json:"lost"`
	LossPercentage float64 `json:"loss_percentage"`
	MinMs          int     `json:"min_ms"`
	MaxMs          int     `json:"max_ms"`
	AvgMs          int     `json:"avg_ms"`
}

// Compute reduces samples from scratch. An empty slice yields all zeros.
func Compute(samples []Sample) Stats {
	st := Stats{Sent: len(samples)}
	if st.Sent == 0 {
		return st
	}
	sum := 0
	for _, s := range samples {
		if s.Status != StatusSuccess {
			continue
		}
		if st.Received == 0 || s.RoundTripMs < st.MinMs {
			st.MinMs = s.RoundTripMs
		}
		if s.RoundTripMs > st.MaxMs {
			st.MaxMs = s.RoundTripMs
		}
		sum += s.RoundTripMs
		st.Received++
	}
	st.Lost = st.Sent - st.Received
	st.LossPercentage = float64(st.Lost) / float64(st.Sent) * 100
	if st.Received > 0 {
		st.AvgMs = int(math.Round(float64(sum) / float64(st.Received)))
	}
	return st
}
