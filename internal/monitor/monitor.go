package monitor

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/puzpuzpuz/xsync/v3"

	"ms-reservation/internal/logger"
)

// Metrics is the request summary reported by /health.
type Metrics struct {
	TotalRequests     int64   `json:"total_requests"`
	FailedRequests    int64   `json:"failed_requests"`
	SuccessRate       float64 `json:"success_rate"`
	AverageResponseMs float64 `json:"average_response_time_ms"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
}

// Monitor counts requests and their latency. Safe for concurrent use.
type Monitor struct {
	total     *xsync.Counter
	failed    *xsync.Counter
	latencyNs *xsync.Counter
	startedAt time.Time
	logger    *logger.Logger
}

func New(log *logger.Logger) *Monitor {
	return &Monitor{
		total:     xsync.NewCounter(),
		failed:    xsync.NewCounter(),
		latencyNs: xsync.NewCounter(),
		startedAt: time.Now(),
		logger:    log,
	}
}

func (m *Monitor) Record(duration time.Duration, success bool) {
	m.total.Inc()
	m.latencyNs.Add(int64(duration))
	if !success {
		m.failed.Inc()
	}
}

func (m *Monitor) Metrics() Metrics {
	total := m.total.Value()
	failed := m.failed.Value()

	metrics := Metrics{
		TotalRequests:  total,
		FailedRequests: failed,
		SuccessRate:    100,
		UptimeSeconds:  int64(time.Since(m.startedAt).Seconds()),
	}
	if total > 0 {
		metrics.SuccessRate = float64(total-failed) / float64(total) * 100
		metrics.AverageResponseMs = float64(m.latencyNs.Value()) / float64(total) / float64(time.Millisecond)
	}
	return metrics
}

// Middleware records every request; responses with a 5xx status count as
// failures.
func (m *Monitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		m.Record(duration, status < http.StatusInternalServerError)
		m.logger.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), duration.String())
	})
}
