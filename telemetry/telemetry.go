// Package telemetry exposes request-rate and pipeline-stage metrics via
// Prometheus, plus a query-plan introspection surface built from the
// planner's PlanStep trail (spec §6.1's get_query_plan). A Hook is called
// at each lifecycle transition; the default NopHook discards everything so
// wiring telemetry is opt-in.
package telemetry

import (
	"time"

	"github.com/paulbellamy/ratecounter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fedsql/fedsql/planner"
)

// Hook is notified of request lifecycle transitions (with total elapsed
// time, and the failing stage for a failed request) and of low memory.
// Implementations must be safe for concurrent use; requests run on their
// own goroutine.
type Hook interface {
	RequestSubmitted(requestID string)
	RequestCompleted(requestID string, elapsed time.Duration)
	RequestFailed(requestID, stage string, elapsed time.Duration)
	LowMemoryObserved(requestID string)
}

// NopHook discards every observation.
type NopHook struct{}

func (NopHook) RequestSubmitted(string)                    {}
func (NopHook) RequestCompleted(string, time.Duration)     {}
func (NopHook) RequestFailed(string, string, time.Duration) {}
func (NopHook) LowMemoryObserved(string)                   {}

// PrometheusHook records request counts, a rolling submission rate, and
// per-stage failure counts, following the teacher's promauto.With(registerer)
// construction pattern.
type PrometheusHook struct {
	rate *ratecounter.RateCounter

	submitted prometheus.Counter
	completed prometheus.Counter
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	lowMemory prometheus.Counter
}

func NewPrometheusHook(registerer prometheus.Registerer) *PrometheusHook {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &PrometheusHook{
		rate: ratecounter.NewRateCounter(time.Minute),
		submitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedsql_requests_submitted_total",
			Help: "Number of requests submitted.",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedsql_requests_completed_total",
			Help: "Number of requests that completed successfully.",
		}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fedsql_requests_failed_total",
			Help: "Number of requests that failed, by pipeline stage.",
		}, []string{"stage"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedsql_request_duration_seconds",
			Help:    "Request duration by terminal status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		lowMemory: factory.NewCounter(prometheus.CounterOpts{
			Name: "fedsql_low_memory_observed_total",
			Help: "Number of requests that observed low free system memory at fetch time.",
		}),
	}
}

func (h *PrometheusHook) RequestSubmitted(string) {
	h.submitted.Inc()
	h.rate.Incr(1)
}

func (h *PrometheusHook) RequestCompleted(_ string, elapsed time.Duration) {
	h.completed.Inc()
	h.duration.WithLabelValues("completed").Observe(elapsed.Seconds())
}

func (h *PrometheusHook) RequestFailed(_ string, stage string, elapsed time.Duration) {
	if stage == "" {
		stage = "unknown"
	}
	h.failed.WithLabelValues(stage).Inc()
	h.duration.WithLabelValues("failed").Observe(elapsed.Seconds())
}

func (h *PrometheusHook) LowMemoryObserved(string) {
	h.lowMemory.Inc()
}

// SubmissionsPerMinute reports the current rolling submission rate.
func (h *PrometheusHook) SubmissionsPerMinute() int64 {
	return h.rate.Rate()
}

// QueryPlan renders a planner.Plan's Steps trail into the get_query_plan
// response shape, one line per planning decision in the order it was made.
type QueryPlan struct {
	Steps []PlanStepView
}

type PlanStepView struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

func RenderQueryPlan(p *planner.Plan) QueryPlan {
	steps := make([]PlanStepView, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = PlanStepView{Stage: s.Stage, Detail: s.Detail}
	}
	return QueryPlan{Steps: steps}
}
