// Package metrics exposes Prometheus metrics for running streams.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zmqls"

var (
	streamFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "fps",
		Help:      "Achieved rate of the last iteration",
	}, []string{"stream", "role"})

	streamUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "up",
		Help:      "1 while the stream loop is running",
	}, []string{"stream", "role"})

	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "Frames published or rendered",
	}, []string{"stream", "role"})

	bytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "bytes_total",
		Help:      "Encoded frame bytes published or received",
	}, []string{"stream", "role"})

	skippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "skipped_frames_total",
		Help:      "Iterations abandoned because of a bad frame",
	}, []string{"stream", "role", "reason"})

	settingResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "device",
		Name:      "setting_results_total",
		Help:      "Device setting reconciliation outcomes",
	}, []string{"stream", "setting", "result"})

	// Local cache for the status log and tests.
	cache   = make(map[key]*StreamMetrics)
	cacheMu sync.RWMutex
)

type key struct {
	stream string
	role   string
}

// StreamMetrics holds the current values for one stream.
type StreamMetrics struct {
	FPS     float64
	Up      bool
	Frames  uint64
	Bytes   uint64
	Skipped uint64
}

func SetFPS(stream, role string, fps float64) {
	streamFPS.WithLabelValues(stream, role).Set(fps)
	update(stream, role, func(m *StreamMetrics) { m.FPS = fps })
}

func SetUp(stream, role string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	streamUp.WithLabelValues(stream, role).Set(v)
	update(stream, role, func(m *StreamMetrics) { m.Up = up })
}

// AddFrame counts one frame of n encoded bytes.
func AddFrame(stream, role string, n int) {
	framesTotal.WithLabelValues(stream, role).Inc()
	bytesTotal.WithLabelValues(stream, role).Add(float64(n))
	update(stream, role, func(m *StreamMetrics) {
		m.Frames++
		m.Bytes += uint64(n)
	})
}

func AddSkipped(stream, role, reason string) {
	skippedTotal.WithLabelValues(stream, role, reason).Inc()
	update(stream, role, func(m *StreamMetrics) { m.Skipped++ })
}

func AddSettingResult(stream, setting, result string) {
	settingResults.WithLabelValues(stream, setting, result).Inc()
}

// Delete removes every series of a stream.
func Delete(stream, role string) {
	streamFPS.DeleteLabelValues(stream, role)
	streamUp.DeleteLabelValues(stream, role)
	framesTotal.DeleteLabelValues(stream, role)
	bytesTotal.DeleteLabelValues(stream, role)
	skippedTotal.DeletePartialMatch(prometheus.Labels{"stream": stream, "role": role})
	settingResults.DeletePartialMatch(prometheus.Labels{"stream": stream})

	cacheMu.Lock()
	delete(cache, key{stream, role})
	cacheMu.Unlock()
}

// Get returns a copy of the current values, or nil for an unknown stream.
func Get(stream, role string) *StreamMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	if m, ok := cache[key{stream, role}]; ok {
		dup := *m
		return &dup
	}
	return nil
}

func update(stream, role string, fn func(*StreamMetrics)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	k := key{stream, role}
	m, ok := cache[k]
	if !ok {
		m = &StreamMetrics{}
		cache[k] = m
	}
	fn(m)
}
