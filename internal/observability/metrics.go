package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by command name.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microblog_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by SQL verb.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "microblog_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// PostsCreated counts new posts by sentiment label.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microblog_posts_created_total",
		Help: "Total number of posts created, by sentiment label",
	}, []string{"sentiment"})

	// FollowActions counts follow and unfollow calls by outcome.
	FollowActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microblog_follow_actions_total",
		Help: "Follow graph mutations by action and result",
	}, []string{"action", "result"})

	// WebSocketConnectionsTotal is the gauge of open feed stream connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "microblog_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microblog_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped because a client's send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microblog_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
