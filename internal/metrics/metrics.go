package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // PlacementRuns counts placement solves by outcome (feasible/infeasible)
    PlacementRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "placement_runs_total", Help: "Placement solves by outcome."},
        []string{"outcome"},
    )
    // PlacementFitness observes best fitness of feasible solves. Fitness is a
    // negated penalty sum, so values sit at or below zero.
    PlacementFitness = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "placement_fitness", Help: "Best fitness of feasible placements.", Buckets: []float64{-5000, -2000, -1000, -500, -200, -100, -50, -20, 0}},
    )
    // PlacementIterations observes refinement iterations per solve
    PlacementIterations = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "placement_iterations", Help: "Refinement iterations per solve.", Buckets: []float64{100, 200, 400, 800, 1600, 3200}},
    )

    // GeocodeLookups counts geocode resolutions by source (direct, cache, here)
    GeocodeLookups = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "geocode_lookups_total", Help: "Geocode lookups by source."},
        []string{"source"},
    )

    // WebhookDeliveries counts webhook delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
    // WebhookLatency tracks webhook delivery latencies in milliseconds
    WebhookLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"event_type", "status"},
    )
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(PlacementRuns)
        Registry.MustRegister(PlacementFitness)
        Registry.MustRegister(PlacementIterations)
        Registry.MustRegister(GeocodeLookups)
        Registry.MustRegister(WebhookDeliveries)
        Registry.MustRegister(WebhookLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
