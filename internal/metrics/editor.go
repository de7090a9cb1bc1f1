package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EditorObserver 记录编辑会话发出的远端写入，满足 editor.Observer。
type EditorObserver struct {
	writes   *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewEditorObserver 在给定 registerer 上注册编辑器指标；reg 为 nil 时使用默认注册表。
func NewEditorObserver(reg prometheus.Registerer) *EditorObserver {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &EditorObserver{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumebuilder",
			Subsystem: "editor",
			Name:      "remote_writes_total",
			Help:      "编辑器发出的远端写入总数。",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resumebuilder",
			Subsystem: "editor",
			Name:      "remote_write_failures_total",
			Help:      "失败的远端写入数量。",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resumebuilder",
			Subsystem: "editor",
			Name:      "remote_write_duration_seconds",
			Help:      "远端写入耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(o.writes, o.failures, o.latency)
	return o
}

// ObserveRemoteWrite 记录一次远端写入的结果。
func (o *EditorObserver) ObserveRemoteWrite(op string, elapsed time.Duration, err error) {
	o.writes.WithLabelValues(op).Inc()
	o.latency.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		o.failures.WithLabelValues(op).Inc()
	}
}
