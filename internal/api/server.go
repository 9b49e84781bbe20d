package api

import (
    "os"
    "strings"

    "haulplan/internal/analytics"
    "haulplan/internal/auth"
    "haulplan/internal/geocode"
    "haulplan/internal/integrations"
    "haulplan/internal/integrations/carapi"
    "haulplan/internal/integrations/carquery"
    "haulplan/internal/integrations/vpic"
    "haulplan/internal/routing"
    "haulplan/internal/specs"
    "haulplan/internal/store"
    "haulplan/internal/webhooks"
)

type Server struct {
    Store     store.Store
    Pub       *webhooks.Publisher
    Auth      *auth.Verifier
    Broker    EventBroker
    Jobs      *JobCache
    Geocoder  *geocode.Client
    Router    *routing.Client
    Specs     *specs.Resolver
    Options   specs.OptionsSource
    Analytics *analytics.Logger
}

// NewServer wires a Server from the environment. If DATABASE_URL is unset,
// uses the in-memory store; REDIS_URL switches the event broker to Redis.
// Catalog providers join the spec resolver only when configured, so
// offline deployments resolve from the cache and built-in tables alone.
func NewServer() (*Server, error) {
    dsn := os.Getenv("DATABASE_URL")
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            _ = sp.MigrateDir("db/migrations")
        }
        s = sp
    }
    // Broker selection
    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        if rb, err := NewRedisBroker(); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }

    var car *carapi.Client
    var providers []integrations.SpecsProvider
    if os.Getenv("CARAPI_TOKEN") != "" || os.Getenv("CARAPI_SECRET") != "" || os.Getenv("CARAPI_BASE") != "" {
        car = carapi.NewClientFromEnv()
        providers = append(providers, car)
    }
    if os.Getenv("CARQUERY_ENABLE") == "1" {
        providers = append(providers, carquery.NewClient())
    }

    gc := geocode.NewClientFromEnv()
    gc.Cache = s

    return &Server{
        Store:     s,
        Pub:       webhooks.NewPublisher(s),
        Auth:      auth.NewVerifierFromEnv(),
        Broker:    broker,
        Jobs:      NewJobCache(),
        Geocoder:  gc,
        Router:    routing.NewClientFromEnv(),
        Specs:     &specs.Resolver{Providers: providers, Cache: s},
        Options:   specs.OptionsSource{CarAPI: car, VPIC: vpic.NewClient()},
        Analytics: analytics.NewFromEnv(),
    }, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}
