package observability

import (
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// AuthEvents counts login, register and refresh outcomes.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_auth_events_total",
		Help: "Authentication events by action and outcome",
	}, []string{"action", "outcome"})

	// PostsPublished counts published posts by whether they carried an image.
	PostsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_posts_published_total",
		Help: "Total number of published posts",
	}, []string{"with_image"})

	// LikeToggles counts like toggles by resulting action.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_like_toggles_total",
		Help: "Total number of like toggles by action",
	}, []string{"action"})

	// MessagesSent counts direct messages by type.
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_messages_sent_total",
		Help: "Total number of direct messages sent",
	}, []string{"message_type"})

	// RealtimeDeliveries counts realtime push attempts by outcome.
	RealtimeDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_realtime_deliveries_total",
		Help: "Realtime notification deliveries by outcome",
	}, []string{"outcome"})

	// WebSocketConnections is the gauge of open websocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusfeed_websocket_connections",
		Help: "Number of open websocket connections",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusfeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

const queryStartKey = "campusfeed:query_start"

// DatabaseMetrics is a gorm plugin recording the latency of every statement.
type DatabaseMetrics struct{}

// Name implements gorm.Plugin.
func (DatabaseMetrics) Name() string { return "campusfeed:metrics" }

// Initialize registers before/after callbacks on every gorm processor.
func (DatabaseMetrics) Initialize(db *gorm.DB) error {
	register := func(op string, before, after func(string, func(*gorm.DB)) error) error {
		if err := before("campusfeed:before_"+op, startTimer); err != nil {
			return err
		}
		return after("campusfeed:after_"+op, observe(op))
	}

	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := register(s.op, s.before, s.after); err != nil {
			return err
		}
	}
	return nil
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "raw"
		}
		DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
	}
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// HTTPMetrics returns the process-wide Fiber request metrics middleware. It registers
// with the default registry once, so every app built in a process shares it.
func HTTPMetrics() *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New("campusfeed-api")
	})
	return httpMetrics
}
