package telemetry

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// HealthFunc reports whether the process is ready to serve requests.
type HealthFunc func() error

// OpsHandler builds the small ops-only HTTP surface: /healthz and
// /metrics, following the teacher's ppl/zqd.Core routerAux pattern (an
// auxiliary router carrying pprof/metrics/status, kept separate from the
// query API surface). This is NOT the out-of-scope query REST surface;
// submit/poll/get_result/get_query_plan remain Go-level contracts.
func OpsHandler(gatherer prometheus.Gatherer, health HealthFunc) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		io.WriteString(w, `{"status":"ok"}`)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return cors.Default().Handler(r)
}
