package store

import (
    "context"
    "errors"
    "time"

    "haulplan/internal/model"
)

// Store is the persistence interface used by the API server. Placement
// results are computed per request and never stored; what persists is the
// reference data around them: rig profiles, resolver caches, and the
// webhook delivery queue.
type Store interface {
    // Rig profiles
    CreateRig(ctx context.Context, tenantID string, in model.RigProfileIn) (model.RigProfile, error)
    GetRig(ctx context.Context, tenantID, id string) (model.RigProfile, error)
    ListRigs(ctx context.Context, tenantID, cursor string, limit int) ([]model.RigProfile, string, error)
    UpdateRig(ctx context.Context, tenantID, id string, in model.RigProfileIn) (model.RigProfile, error)
    DeleteRig(ctx context.Context, tenantID, id string) error

    // Vehicle spec cache. Keys arrive normalized; the store treats them as
    // opaque.
    GetVehicleSpecs(ctx context.Context, year int, mk, mdl string) (model.VehicleSpecs, error)
    PutVehicleSpecs(ctx context.Context, year int, mk, mdl string, spec model.VehicleSpecs) error

    // Geocode cache
    GetGeocode(ctx context.Context, query string) (model.GeocodeResult, error)
    PutGeocode(ctx context.Context, query string, res model.GeocodeResult) error

    // Subscriptions
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, tenantID, id string) error

    // Webhook deliveries
    EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
    ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
    RetryWebhookDelivery(ctx context.Context, tenantID, id string) error
    WebhookMetrics(ctx context.Context, tenantID string, since time.Time, eventType, status string, codeMin, codeMax int, buckets []int) ([]map[string]any, error)

    // Dead-letter queue
    ListWebhookDLQ(ctx context.Context, tenantID, eventType string, olderThan time.Time, codeMin, codeMax int, errorQuery, cursor string, limit int) ([]map[string]any, string, error)
    RequeueWebhookDLQ(ctx context.Context, tenantID, id string) error
    RequeueWebhookDLQBulk(ctx context.Context, tenantID string, ids []string) error
    DeleteWebhookDLQBulk(ctx context.Context, tenantID string, ids []string, olderThan time.Time) error
}

// WebhookDelivery is one queued event delivery as handed to the worker.
type WebhookDelivery struct {
    ID             string
    TenantID       string
    SubscriptionID string
    EventType      string
    URL            string
    Secret         string
    Payload        []byte
    Status         string
    Attempts       int
}

var ErrNotFound = errors.New("not found")
