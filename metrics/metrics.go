package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricNamespace = "linkseq"

// Counters.
var (
	//nolint:gochecknoglobals
	queuePushedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "queue_pushed_total",
		Help:      "Total number of items pushed to a work queue.",
		Namespace: metricNamespace,
	}, []string{"queue"})

	//nolint:gochecknoglobals
	queuePoppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "queue_popped_total",
		Help:      "Total number of items popped from a work queue.",
		Namespace: metricNamespace,
	}, []string{"queue"})

	//nolint:gochecknoglobals
	stagedWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "staged_writes_total",
		Help:      "Total number of writes added to staging buffers.",
		Namespace: metricNamespace,
	})

	//nolint:gochecknoglobals
	flushedWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "flushed_writes_total",
		Help:      "Total number of staged writes applied to the target.",
		Namespace: metricNamespace,
	})

	//nolint:gochecknoglobals
	flushErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "flush_errors_total",
		Help:      "Total number of failed namespace flushes.",
		Namespace: metricNamespace,
	})
)

// Gauges.
var (
	//nolint:gochecknoglobals
	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "queue_depth",
		Help:      "Number of items waiting in a work queue.",
		Namespace: metricNamespace,
	}, []string{"queue"})

	//nolint:gochecknoglobals
	stagedWrites = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "staged_writes",
		Help:      "Number of writes waiting in staging buffers.",
		Namespace: metricNamespace,
	})

	//nolint:gochecknoglobals
	flushDurationSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "flush_duration_seconds",
		Help:      "Duration of the last staging buffer flush in seconds.",
		Namespace: metricNamespace,
	})
)

// Init initializes and registers the metrics.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: metricNamespace,
	}))

	reg.MustRegister(
		queuePushedTotal,
		queuePoppedTotal,
		queueDepth,

		stagedWritesTotal,
		flushedWritesTotal,
		flushErrorsTotal,
		stagedWrites,
		flushDurationSeconds,
	)
}

// AddQueuePushed increments the pushed items counter of the queue.
func AddQueuePushed(queue string, v int) {
	queuePushedTotal.WithLabelValues(queue).Add(float64(v))
}

// AddQueuePopped increments the popped items counter of the queue.
func AddQueuePopped(queue string, v int) {
	queuePoppedTotal.WithLabelValues(queue).Add(float64(v))
}

// SetQueueDepth sets the number of waiting items of the queue.
func SetQueueDepth(queue string, v int) {
	queueDepth.WithLabelValues(queue).Set(float64(v))
}

// AddStagedWrites increments the staged writes counter and gauge.
func AddStagedWrites(v int) {
	stagedWritesTotal.Add(float64(v))
	stagedWrites.Add(float64(v))
}

// AddFlushedWrites increments the flushed writes counter and lowers the staged gauge.
func AddFlushedWrites(v int) {
	flushedWritesTotal.Add(float64(v))
	stagedWrites.Sub(float64(v))
}

// AddDroppedWrites lowers the staged gauge for writes discarded without a flush.
func AddDroppedWrites(v int) {
	stagedWrites.Sub(float64(v))
}

// IncFlushErrors increments the failed flush counter.
func IncFlushErrors() {
	flushErrorsTotal.Inc()
}

// SetFlushDuration sets the duration of the last flush.
func SetFlushDuration(dur time.Duration) {
	flushDurationSeconds.Set(dur.Seconds())
}
