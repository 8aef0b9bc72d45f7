package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandTotal counts commands by command name and outcome
	CommandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmesh_command_total",
			Help: "Total number of commands processed",
		},
		[]string{"command", "status"},
	)

	// CommandLatency tracks command latency by command name
	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbmesh_command_latency_seconds",
			Help:    "Command latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// CacheHits counts cache hits by datasource
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmesh_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"datasource"},
	)

	// CacheMisses counts cache misses by datasource
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmesh_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"datasource"},
	)

	// BackendQueries counts statements sent to backends by datasource and
	// the primary or replica that served them
	BackendQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbmesh_backend_queries_total",
			Help: "Total statements sent to backends",
		},
		[]string{"datasource", "backend"},
	)

	// ActiveConnections tracks currently open client connections
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dbmesh_active_connections",
			Help: "Currently open client connections",
		},
	)

	once sync.Once
)

// Init registers all metrics with Prometheus
func Init() {
	once.Do(func() {
		prometheus.MustRegister(CommandTotal)
		prometheus.MustRegister(CommandLatency)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(BackendQueries)
		prometheus.MustRegister(ActiveConnections)
	})
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
