package collection

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ai_collection"

var (
	operationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "sync",
		Name:      "operation_seconds",
		Help:      "Duration of synchronization operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	operationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "sync",
		Name:      "operation_errors_total",
		Help:      "Synchronization operations that ended in a failure.",
	}, []string{"operation"})

	degradedLoads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "sync",
		Name:      "degraded_loads_total",
		Help:      "Loads served from the local cache after a fetch failure.",
	})

	importedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "sync",
		Name:      "imported_records_total",
		Help:      "Records submitted through a successful import.",
	})
)

func init() {
	prometheus.MustRegister(operationSeconds, operationErrors, degradedLoads, importedRecords)
}

// observe starts timing an operation. The returned func records the
// duration and counts a failure when *err is non-nil.
func observe(operation string, err *error) func() {
	start := time.Now()
	return func() {
		operationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil && *err != nil {
			operationErrors.WithLabelValues(operation).Inc()
		}
	}
}
