package main

import (
    "bufio"
    "fmt"
    "log"
    "net"
    "net/http"
    "os"
    "strings"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "golang.org/x/time/rate"

    "haulplan/internal/api"
    "haulplan/internal/metrics"
)

func main() {
    srvDeps, err := api.NewServer()
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }

    mux := http.NewServeMux()

    // Placement
    mux.HandleFunc("/v1/placement", srvDeps.PlacementHandler)
    mux.HandleFunc("/v1/placement/plan", srvDeps.PlacementPlanHandler)
    mux.HandleFunc("/v1/placement/jobs", srvDeps.PlacementJobsHandler)
    mux.HandleFunc("/v1/placement/jobs/", srvDeps.PlacementJobByIDHandler) // includes /events/stream
    mux.HandleFunc("/ws/placement", srvDeps.PlacementWSHandler)

    // Load calculators
    mux.HandleFunc("/v1/loadcheck", srvDeps.LoadCheckHandler)
    mux.HandleFunc("/v1/arrangement", srvDeps.ArrangementHandler)

    // Route planning and vehicle catalog
    mux.HandleFunc("/v1/route-plan", srvDeps.RoutePlanHandler)
    mux.HandleFunc("/v1/vehicle-specs", srvDeps.VehicleSpecsHandler)
    mux.HandleFunc("/vehicle-specs", srvDeps.VehicleSpecsHandler) // legacy unversioned path
    mux.HandleFunc("/v1/vehicle-options/makes", srvDeps.VehicleOptionsMakesHandler)
    mux.HandleFunc("/v1/vehicle-options/models", srvDeps.VehicleOptionsModelsHandler)

    // Rig profiles
    mux.HandleFunc("/v1/rigs", srvDeps.RigsHandler)
    mux.HandleFunc("/v1/rigs/", srvDeps.RigByIDHandler)

    // Subscriptions
    mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
    mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

    // Health
    mux.HandleFunc("/healthz", srvDeps.HealthHandler)
    mux.HandleFunc("/readyz", srvDeps.ReadyHandler)

    // Admin
    mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)
    mux.HandleFunc("/v1/admin/webhook-deliveries/", srvDeps.WebhookDeliveryRetryHandler)
    mux.HandleFunc("/v1/admin/webhook-metrics", srvDeps.WebhookMetricsHandler)
    mux.HandleFunc("/v1/admin/webhook-dlq", srvDeps.WebhookDLQHandler)
    mux.HandleFunc("/v1/admin/webhook-dlq/", srvDeps.WebhookDLQHandler)
    mux.HandleFunc("/v1/admin/plan-metrics", srvDeps.PlanMetricsHandler)

    // Docs and diagnostics
    mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
    mux.HandleFunc("/docs", srvDeps.DocsHandler)
    mux.HandleFunc("/swagger", srvDeps.SwaggerHandler)
    mux.HandleFunc("/static/", srvDeps.StaticHandler)
    mux.HandleFunc("/debug", srvDeps.DebugJSON)

    metrics.RegisterDefault()
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    handler := corsMiddleware(rateLimitMiddleware(metricsMiddleware(logMiddleware(mux))))
    srv := &http.Server{
        Addr:              addr,
        Handler:           handler,
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.Printf("API listening on %s", addr)
    // Start webhook worker
    if srvDeps.Pub != nil {
        worker := srvDeps.NewWebhookWorker()
        worker.Start()
    }
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatalf("server error: %v", err)
    }
}

// statusWriter captures the response code for logs and metrics while
// passing Flush and Hijack through so SSE and WebSocket upgrades keep
// working behind the middleware.
type statusWriter struct {
    http.ResponseWriter
    status int
}

func (w *statusWriter) WriteHeader(c int) { w.status = c; w.ResponseWriter.WriteHeader(c) }

func (w *statusWriter) Flush() {
    if f, ok := w.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    if h, ok := w.ResponseWriter.(http.Hijacker); ok { return h.Hijack() }
    return nil, nil, fmt.Errorf("hijack not supported")
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        sw := &statusWriter{ResponseWriter: w, status: 200}
        next.ServeHTTP(sw, r)
        dur := time.Since(start)
        log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, sw.status, dur)
    })
}

// metricPath collapses id segments so metric label cardinality stays bounded.
func metricPath(p string) string {
    for _, pre := range []string{"/v1/placement/jobs/", "/v1/rigs/", "/v1/subscriptions/", "/v1/admin/webhook-deliveries/", "/v1/admin/webhook-dlq/"} {
        if strings.HasPrefix(p, pre) { return pre + ":id" }
    }
    return p
}

func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        sw := &statusWriter{ResponseWriter: w, status: 200}
        next.ServeHTTP(sw, r)
        path := metricPath(r.URL.Path)
        status := fmt.Sprintf("%d", sw.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
    })
}

// rateLimitMiddleware applies a process-wide token bucket. RATE_RPS and
// RATE_BURST tune it; health, readiness, and metrics scrapes are exempt.
func rateLimitMiddleware(next http.Handler) http.Handler {
    rps, burst := 50, 100
    if v := os.Getenv("RATE_RPS"); v != "" { fmt.Sscanf(v, "%d", &rps) }
    if v := os.Getenv("RATE_BURST"); v != "" { fmt.Sscanf(v, "%d", &burst) }
    limiter := rate.NewLimiter(rate.Limit(rps), burst)
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/healthz", "/readyz", "/metrics":
            next.ServeHTTP(w, r)
            return
        }
        if !limiter.Allow() {
            w.Header().Set("Retry-After", "1")
            http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
            return
        }
        next.ServeHTTP(w, r)
    })
}

func corsMiddleware(next http.Handler) http.Handler {
    allowed := strings.Split(os.Getenv("ALLOW_ORIGINS"), ",")
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        origin := r.Header.Get("Origin")
        if origin != "" {
            allow := ""
            for _, a := range allowed {
                a = strings.TrimSpace(a)
                if a == "*" || a == origin { allow = origin; break }
            }
            if os.Getenv("ALLOW_ORIGINS") == "" { allow = origin }
            if allow != "" {
                w.Header().Set("Access-Control-Allow-Origin", allow)
                w.Header().Set("Vary", "Origin")
                w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
                w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Tenant-Id, X-Role, X-Driver-Id")
            }
        }
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}
