package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "matches_total", Help: "Rides successfully matched to a driver"})
	NoDriversTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "match_no_drivers_total", Help: "Ride requests that found no driver in radius"})
	LocationUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "location_updates_total", Help: "Driver location reports ingested"})

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "transitions_total", Help: "Lifecycle transitions by action and outcome"},
		[]string{"action", "outcome"},
	)

	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "events_published_total", Help: "Events published to the bus"})
	EventsDropped   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "events_dropped_total", Help: "Events dropped for slow subscribers"})
	WSClients       = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_hailing", Name: "ws_clients", Help: "Connected websocket clients"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_hailing",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
