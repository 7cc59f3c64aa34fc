package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostEventsTotal counts domain events by type.
	PostEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_post_events_total",
		Help: "Total number of domain events published, by event type",
	}, []string{"event"})

	// EventHandlerFailures counts event handlers that returned an error or panicked.
	EventHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_event_handler_failures_total",
		Help: "Total number of failed event handler invocations, by event type",
	}, []string{"event"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ResponseCacheRequests counts response cache lookups by outcome.
	ResponseCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_response_cache_requests_total",
		Help: "Response cache lookups by result (hit, miss, bypass)",
	}, []string{"result"})

	// MediaUploadsTotal counts media uploads by store and outcome.
	MediaUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_media_uploads_total",
		Help: "Media uploads by store and result",
	}, []string{"store", "result"})

	// WebSocketConnections is the number of live notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "folio_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})
)

// WebSocketBackpressureDrops counts outbound messages dropped for slow clients.
var WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "folio_websocket_backpressure_drops_total",
	Help: "Outbound websocket messages dropped, by reason (full, closed)",
}, []string{"reason"})
