// Package metrics records per-run join metrics and pushes them to a
// Prometheus Pushgateway. A batch job has no scrape endpoint, so push is the
// only delivery path.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "s3joiner"

const DefaultJobLabel = "s3joiner"

type Recorder struct {
	reg *prometheus.Registry

	objects     *prometheus.GaugeVec
	bytes       *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
	failures    *prometheus.CounterVec
	objectsRead *prometheus.CounterVec
	bytesRead   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		objects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "joined_objects",
			Help:      "Number of input objects in the last join.",
		}, []string{"job"}),
		bytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "joined_bytes",
			Help:      "Size of the last joined output before compression.",
		}, []string{"job"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful join.",
		}, []string{"job"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed joins.",
		}, []string{"job"}),
		objectsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_read_total",
			Help:      "Input objects fully or partially read.",
		}, []string{"job"}),
		bytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Bytes read from input objects.",
		}, []string{"job"}),
	}
	r.reg.MustRegister(r.objects, r.bytes, r.duration, r.lastSuccess, r.failures, r.objectsRead, r.bytesRead)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// ObserveObject is called when an input object is released.
func (r *Recorder) ObserveObject(job string, bytesRead int64) {
	r.objectsRead.WithLabelValues(job).Inc()
	r.bytesRead.WithLabelValues(job).Add(float64(bytesRead))
}

// ObserveRun records the outcome of one run. The success gauges are only
// updated when err is nil.
func (r *Recorder) ObserveRun(job string, objects int, size int64, d time.Duration, err error, now time.Time) {
	r.duration.WithLabelValues(job).Set(d.Seconds())
	if err != nil {
		r.failures.WithLabelValues(job).Inc()
		return
	}
	r.objects.WithLabelValues(job).Set(float64(objects))
	r.bytes.WithLabelValues(job).Set(float64(size))
	r.lastSuccess.WithLabelValues(job).Set(float64(now.Unix()))
}

// Push sends every collected metric to the Pushgateway at url, replacing the
// previous push of the same job label. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, jobLabel string) error {
	if url == "" {
		return nil
	}
	if jobLabel == "" {
		jobLabel = DefaultJobLabel
	}
	if err := push.New(url, jobLabel).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
