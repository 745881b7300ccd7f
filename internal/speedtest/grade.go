package speedtest

// Grade is a qualitative rating of a measurement.
type Grade string

const (
	GradeExcellent Grade = "Excellent"
	GradeGood      Grade = "Good"
	GradeFair      Grade = "Fair"
	GradePoor      Grade = "Poor"
)

type thresholds struct {
	excellent, good, fair float64
}

var (
	downloadThresholds = thresholds{excellent: 100, good: 50, fair: 25}
	uploadThresholds   = thresholds{excellent: 50, good: 25, fair: 10}
)

func (t thresholds) grade(mbps float64) Grade {
	switch {
	case mbps >= t.excellent:
		return GradeExcellent
	case mbps >= t.good:
		return GradeGood
	case mbps >= t.fair:
		return GradeFair
	default:
		return GradePoor
	}
}

// DownloadGrade rates a download speed in Mbps.
func DownloadGrade(mbps float64) Grade { return downloadThresholds.grade(mbps) }

// UploadGrade rates an upload speed in Mbps.
func UploadGrade(mbps float64) Grade { return uploadThresholds.grade(mbps) }

// PingGrade rates latency: under 20ms excellent, under 50ms good.
func PingGrade(ms int) Grade {
	switch {
	case ms < 20:
		return GradeExcellent
	case ms < 50:
		return GradeGood
	default:
		return GradePoor
	}
}

// JitterGrade rates jitter: under 3ms excellent, under 6ms good.
func JitterGrade(ms int) Grade {
	switch {
	case ms < 3:
		return GradeExcellent
	case ms < 6:
		return GradeGood
	default:
		return GradePoor
	}
}

// StatusText is the one-line description shown for each phase.
func StatusText(p Phase) string {
	switch p {
	case PhasePing:
		return "Testing ping..."
	case PhaseDownload:
		return "Testing download speed..."
	case PhaseUpload:
		return "Testing upload speed..."
	case PhaseComplete:
		return "Test completed!"
	default:
		return "Ready to test"
	}
}
