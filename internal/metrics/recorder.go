package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes used as the result label of page resolutions.
const (
	ResultFound     = "found"
	ResultNotFound  = "not_found"
	ResultAmbiguous = "ambiguous"
)

// Recorder collects CMS metrics on a dedicated registry.
type Recorder struct {
	registry       *prom.Registry
	resolutions    *prom.CounterVec
	renderDuration *prom.HistogramVec
	blockLinks     *prom.CounterVec
}

// NewRecorder registers the CMS collectors on reg (a fresh registry when nil).
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		resolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cms",
			Name:      "page_resolutions_total",
			Help:      "Page path resolutions by outcome",
		}, []string{"result"}),
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "cms",
			Name:      "render_duration_seconds",
			Help:      "Template evaluation time for pages and blocks",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		blockLinks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "cms",
			Name:      "block_links_total",
			Help:      "Content block links created by block type",
		}, []string{"type"}),
	}
	reg.MustRegister(r.resolutions, r.renderDuration, r.blockLinks)
	return r
}

// ObserveResolution counts one path resolution outcome.
func (r *Recorder) ObserveResolution(result string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(result).Inc()
}

// ObserveRender records how long rendering a page or block took.
func (r *Recorder) ObserveRender(kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.renderDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncBlockLink counts a newly created content block link.
func (r *Recorder) IncBlockLink(blockType string) {
	if r == nil {
		return
	}
	r.blockLinks.WithLabelValues(blockType).Inc()
}

// Handler exposes the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
