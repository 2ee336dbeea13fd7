// Package metrics exposes Prometheus instrumentation for the channel server.
//
//	criollotv_http_requests_total            counter: requests by method/route/status
//	criollotv_http_request_duration_seconds  histogram: latency by method/route
//	criollotv_playlist_fetches_total         counter: playlist fetch outcomes
//	criollotv_cache_reads_total              counter: channel cache reads by result
//	criollotv_cache_channels                 gauge: channels in the current snapshot
//	criollotv_admin_attempts_total           counter: admin/auth attempts by endpoint/result
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "criollotv_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "criollotv_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// PlaylistFetches counts fetch attempts by result: ok, timeout, http_status,
// invalid_content, network, exhausted.
var PlaylistFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "criollotv_playlist_fetches_total",
	Help: "Playlist fetch attempts by result.",
}, []string{"result"})

// CacheReads counts channel cache reads by result: hit, refresh, stale, error.
var CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "criollotv_cache_reads_total",
	Help: "Channel cache reads by result.",
}, []string{"result"})

var CacheChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "criollotv_cache_channels",
	Help: "Channels in the current snapshot.",
})

var AdminAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "criollotv_admin_attempts_total",
	Help: "Admin and HWID auth attempts by endpoint and result.",
}, []string{"endpoint", "result"})

// Handler serves the default registry for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. The route label is the
// gorilla/mux path template so ids in paths do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := routeLabel(r)
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "other"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
