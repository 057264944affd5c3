package source

import (
	"sync"
	"time"
)

// Effective connection types, mirroring the buckets browsers report.
const (
	QualitySlow2G = "slow-2g"
	Quality2G     = "2g"
	Quality3G     = "3g"
	Quality4G     = "4g"
)

// QualityEstimator keeps an exponentially weighted throughput average of
// frame downloads and buckets it into an effective connection type.
type QualityEstimator struct {
	// Override, when set, is returned by Hint unconditionally.
	Override string

	// Thresholds in kbit/s; at or above Fast3G the link is "4g".
	Slow2G float64
	Fast2G float64
	Fast3G float64

	// Alpha is the weight of the newest sample.
	Alpha float64

	// MinBytes ignores samples too small to say anything about bandwidth.
	MinBytes int

	mu      sync.Mutex
	kbps    float64
	samples int
}

func NewQualityEstimator() *QualityEstimator {
	return &QualityEstimator{
		Slow2G:   50,
		Fast2G:   70,
		Fast3G:   700,
		Alpha:    0.3,
		MinBytes: 4 * 1024,
	}
}

// Observe records one completed transfer.
func (q *QualityEstimator) Observe(n int, elapsed time.Duration) {
	if n < q.MinBytes || elapsed <= 0 {
		return
	}
	kbps := float64(n) * 8 / 1000 / elapsed.Seconds()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.samples == 0 {
		q.kbps = kbps
	} else {
		q.kbps = q.Alpha*kbps + (1-q.Alpha)*q.kbps
	}
	q.samples++
}

// Throughput is the current estimate in kbit/s and whether any sample exists.
func (q *QualityEstimator) Throughput() (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.kbps, q.samples > 0
}

// Hint returns the effective connection type, or "" while unknown.
func (q *QualityEstimator) Hint() string {
	if q.Override != "" {
		return q.Override
	}
	kbps, ok := q.Throughput()
	if !ok {
		return ""
	}
	switch {
	case kbps < q.Slow2G:
		return QualitySlow2G
	case kbps < q.Fast2G:
		return Quality2G
	case kbps < q.Fast3G:
		return Quality3G
	default:
		return Quality4G
	}
}
