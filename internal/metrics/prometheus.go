package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder backed by a Prometheus registry.
type PrometheusRecorder struct {
	registry *prom.Registry

	rendersTotal    *prom.CounterVec
	renderFailures  prom.Counter
	filesRendered   *prom.CounterVec
	renderDuration  *prom.HistogramVec
	cacheHits       prom.Counter
	cacheMisses     prom.Counter
	resourcesCopied prom.Counter
}

// NewPrometheusRecorder creates a recorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prom.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		rendersTotal: factory.NewCounterVec(prom.CounterOpts{
			Name: "renderkit_renders_total",
			Help: "Render invocations, labeled by mode.",
		}, []string{"mode"}),
		renderFailures: factory.NewCounter(prom.CounterOpts{
			Name: "renderkit_render_failures_total",
			Help: "Per-file render failures.",
		}),
		filesRendered: factory.NewCounterVec(prom.CounterOpts{
			Name: "renderkit_files_rendered_total",
			Help: "Files rendered, labeled by format.",
		}, []string{"format"}),
		renderDuration: factory.NewHistogramVec(prom.HistogramOpts{
			Name:    "renderkit_file_render_seconds",
			Help:    "Per-file render duration.",
			Buckets: prom.DefBuckets,
		}, []string{"format"}),
		cacheHits: factory.NewCounter(prom.CounterOpts{
			Name: "renderkit_index_cache_hits_total",
			Help: "Input index cache hits.",
		}),
		cacheMisses: factory.NewCounter(prom.CounterOpts{
			Name: "renderkit_index_cache_misses_total",
			Help: "Input index cache misses (stale or absent entries).",
		}),
		resourcesCopied: factory.NewCounter(prom.CounterOpts{
			Name: "renderkit_resources_copied_total",
			Help: "Resource files copied into the output tree.",
		}),
	}
}

func (r *PrometheusRecorder) RenderStarted(incremental bool) {
	mode := "full"
	if incremental {
		mode = "incremental"
	}
	r.rendersTotal.WithLabelValues(mode).Inc()
}

func (r *PrometheusRecorder) FileRendered(format string, d time.Duration) {
	r.filesRendered.WithLabelValues(format).Inc()
	r.renderDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (r *PrometheusRecorder) RenderFailed() { r.renderFailures.Inc() }
func (r *PrometheusRecorder) CacheHit()     { r.cacheHits.Inc() }
func (r *PrometheusRecorder) CacheMiss()    { r.cacheMisses.Inc() }
func (r *PrometheusRecorder) ResourcesCopied(n int) {
	r.resourcesCopied.Add(float64(n))
}

// Handler returns an http.Handler serving the recorder's registry.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
