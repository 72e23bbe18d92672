// Package metrics 는 페이지 생성과 캐시 조회 지표를 Prometheus 로 내보낸다.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spacetraveling"

// Recorder 는 pagecache.Recorder 와 revalidation 카운터를 구현한다. nil 이어도 안전하다.
type Recorder struct {
	registry           *prom.Registry
	generations        *prom.CounterVec
	generationDuration *prom.HistogramVec
	lookups            *prom.CounterVec
	revalidations      *prom.CounterVec
}

// NewRecorder 는 지표를 reg 에 등록한다. reg 가 nil 이면 Go/프로세스 수집기를 포함한 새 레지스트리를 만든다.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	}
	r := &Recorder{
		registry: reg,
		generations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_generations_total",
			Help:      "Post page generations by result",
		}, []string{"result"}),
		generationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_generation_duration_seconds",
			Help:      "Duration of post page generation (fetch + render + store)",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		lookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_lookups_total",
			Help:      "Page cache lookups by state",
		}, []string{"state"}),
		revalidations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "revalidation_requests_total",
			Help:      "On-demand revalidation requests by source and outcome",
		}, []string{"source", "outcome"}),
	}
	reg.MustRegister(r.generations, r.generationDuration, r.lookups, r.revalidations)
	return r
}

func (r *Recorder) ObserveGeneration(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(result).Inc()
	r.generationDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (r *Recorder) IncLookup(state string) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(state).Inc()
}

// IncRevalidation 은 webhook / kafka 로 들어온 재검증 요청을 센다.
func (r *Recorder) IncRevalidation(source, outcome string) {
	if r == nil {
		return
	}
	r.revalidations.WithLabelValues(source, outcome).Inc()
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prom.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
