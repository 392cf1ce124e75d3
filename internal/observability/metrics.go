package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gym",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "path", "status"},
	)
	instancesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "envs",
			Name:      "instances_created_total",
			Help:      "Environment instances created.",
		},
		[]string{"env_id"},
	)
	envSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "envs",
			Name:      "steps_total",
			Help:      "Environment steps executed.",
		},
		[]string{"env_id"},
	)
	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gym",
			Subsystem: "envs",
			Name:      "step_duration_seconds",
			Help:      "Environment step duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"env_id"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, instancesCreated, envSteps, stepDuration)
	})
}

func RecordHTTPRequest(server, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordInstanceCreated(envID string) {
	RegisterMetrics()
	instancesCreated.WithLabelValues(envID).Inc()
}

func RecordEnvStep(envID string, duration time.Duration) {
	RegisterMetrics()
	envSteps.WithLabelValues(envID).Inc()
	stepDuration.WithLabelValues(envID).Observe(duration.Seconds())
}
