// Package metrics exposes per-service Prometheus counters. Every Recorder owns
// its own registry, so several proxy services in one process never collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "api_replay"

// Recorder 汇总代理的解析、上游失败与落盘失败次数。
type Recorder struct {
	registry     *prometheus.Registry
	resolutions  *prometheus.CounterVec
	upstreamErrs *prometheus.CounterVec
	persistErrs  *prometheus.CounterVec
	cacheMisses  prometheus.Counter
}

// NewRecorder 创建独立 registry，并注册进程与 Go 运行时采集器。
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolved requests by response source and behavior.",
		}, []string{"source", "behavior"}),
		upstreamErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Upstream calls that produced no usable response, by failure code.",
		}, []string{"code"}),
		persistErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Best-effort cache writes that failed, by step.",
		}, []string{"op"}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Requests rejected because forwarding is disabled and nothing is stored.",
		}),
	}
	reg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
		r.resolutions,
		r.upstreamErrs,
		r.persistErrs,
		r.cacheMisses,
	)
	return r
}

// Registry 便于调用方注册自定义采集器。
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveResolution(source, behavior string) {
	r.resolutions.WithLabelValues(source, behavior).Inc()
}

func (r *Recorder) ObserveUpstreamFailure(code string) {
	if code == "" {
		code = "unknown"
	}
	r.upstreamErrs.WithLabelValues(code).Inc()
}

func (r *Recorder) ObservePersistenceFailure(op string) {
	r.persistErrs.WithLabelValues(op).Inc()
}

func (r *Recorder) ObserveCacheMiss() {
	r.cacheMisses.Inc()
}

// Handler 返回 Prometheus 文本格式的抓取接口。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
