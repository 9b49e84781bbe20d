package store

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "haulplan/internal/model"
    "haulplan/internal/opt"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu      sync.Mutex
    rigs    map[string]model.RigProfile   // id -> profile
    rigsTen map[string][]string           // tenant -> rig ids
    specs   map[string]model.VehicleSpecs // "year|make|model" -> specs
    geo     map[string]model.GeocodeResult // query -> result
    subs    map[string][]model.Subscription // tenant -> subscriptions
    // Webhooks queue state
    deliveries map[string]*memDelivery // id -> delivery state
    deliveriesByTenant map[string][]string // tenant -> delivery ids
    dlq     []dlqRow // dead-lettered deliveries
}

func NewMemory() *Memory {
    return &Memory{
        rigs: map[string]model.RigProfile{},
        rigsTen: map[string][]string{},
        specs: map[string]model.VehicleSpecs{},
        geo: map[string]model.GeocodeResult{},
        subs: map[string][]model.Subscription{},
        deliveries: map[string]*memDelivery{},
        deliveriesByTenant: map[string][]string{},
        dlq: []dlqRow{},
    }
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
    ResponseCode  int
    LatencyMs     int
    DeliveredAt   *time.Time
}

// dlqRow keeps enough of the failed delivery to filter and requeue it.
type dlqRow struct {
    ID           string
    TenantID     string
    DeliveryID   string
    EventType    string
    URL          string
    Secret       string
    Payload      []byte
    Attempts     int
    LastError    string
    ResponseCode int
    LatencyMs    int
    CreatedAt    time.Time
}

// Rig profiles
func (m *Memory) CreateRig(ctx context.Context, tenantID string, in model.RigProfileIn) (model.RigProfile, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now().UTC().Format(time.RFC3339)
    r := model.RigProfile{ID: uuid.New().String(), TenantID: tenantID, Name: in.Name, Description: in.Description, Rig: opt.RigSpecFromInput(in.Rig), Slots: opt.SlotSpecsFromInput(in.Slots), CreatedAt: now, UpdatedAt: now}
    m.rigs[r.ID] = r
    m.rigsTen[tenantID] = append(m.rigsTen[tenantID], r.ID)
    return r, nil
}

func (m *Memory) GetRig(ctx context.Context, tenantID, id string) (model.RigProfile, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.rigs[id]
    if !ok || r.TenantID != tenantID { return model.RigProfile{}, ErrNotFound }
    return r, nil
}

func (m *Memory) ListRigs(ctx context.Context, tenantID, cursor string, limit int) ([]model.RigProfile, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := m.rigsTen[tenantID]
    start := 0
    if cursor != "" {
        for i, id := range ids {
            if id == cursor { start = i + 1; break }
        }
    }
    if limit <= 0 { limit = 100 }
    out := []model.RigProfile{}
    var next string
    for i := start; i < len(ids) && len(out) < limit; i++ {
        out = append(out, m.rigs[ids[i]])
        next = ids[i]
    }
    if len(out) < limit { next = "" }
    return out, next, nil
}

func (m *Memory) UpdateRig(ctx context.Context, tenantID, id string, in model.RigProfileIn) (model.RigProfile, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.rigs[id]
    if !ok || r.TenantID != tenantID { return model.RigProfile{}, ErrNotFound }
    if in.Name != "" { r.Name = in.Name }
    if in.Description != "" { r.Description = in.Description }
    if in.Rig != nil { r.Rig = opt.RigSpecFromInput(in.Rig) }
    if in.Slots != nil { r.Slots = opt.SlotSpecsFromInput(in.Slots) }
    r.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
    m.rigs[id] = r
    return r, nil
}

func (m *Memory) DeleteRig(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.rigs[id]
    if !ok || r.TenantID != tenantID { return ErrNotFound }
    delete(m.rigs, id)
    ids := m.rigsTen[tenantID]
    out := make([]string, 0, len(ids))
    for _, v := range ids { if v != id { out = append(out, v) } }
    m.rigsTen[tenantID] = out
    return nil
}

// Vehicle spec cache
func (m *Memory) GetVehicleSpecs(ctx context.Context, year int, mk, mdl string) (model.VehicleSpecs, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s, ok := m.specs[specKey(year, mk, mdl)]
    if !ok { return model.VehicleSpecs{}, ErrNotFound }
    return s, nil
}

func (m *Memory) PutVehicleSpecs(ctx context.Context, year int, mk, mdl string, spec model.VehicleSpecs) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.specs[specKey(year, mk, mdl)] = spec
    return nil
}

// Geocode cache
func (m *Memory) GetGeocode(ctx context.Context, query string) (model.GeocodeResult, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    g, ok := m.geo[query]
    if !ok { return model.GeocodeResult{}, ErrNotFound }
    return g, nil
}

func (m *Memory) PutGeocode(ctx context.Context, query string, res model.GeocodeResult) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.geo[query] = res
    return nil
}

// Subscriptions
func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
    m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
    return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var out []model.Subscription
    for _, s := range m.subs[tenantID] {
        for _, e := range s.Events { if e == eventType { out = append(out, s); break } }
    }
    return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    list := m.subs[tenantID]
    start := 0
    if cursor != "" {
        for i := range list { if list[i].ID == cursor { start = i+1; break } }
    }
    if limit <= 0 { limit = 100 }
    end := start + limit
    if end > len(list) { end = len(list) }
    items := append([]model.Subscription(nil), list[start:end]...)
    next := ""
    if end < len(list) { next = list[end-1].ID }
    return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    arr := m.subs[tenantID]
    out := make([]model.Subscription, 0, len(arr))
    for _, s := range arr { if s.ID != id { out = append(out, s) } }
    m.subs[tenantID] = out
    return nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    return m.enqueueLocked(tenantID, subscriptionID, eventType, url, secret, payload), nil
}

// enqueueLocked requires m.mu held.
func (m *Memory) enqueueLocked(tenantID, subscriptionID, eventType, url, secret string, payload []byte) string {
    id := uuid.New().String()
    d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending", Attempts: 0}, NextAttemptAt: time.Now()}
    m.deliveries[id] = d
    m.deliveriesByTenant[tenantID] = append(m.deliveriesByTenant[tenantID], id)
    return id
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, id := range m.iterDeliveryIDs() {
        d := m.deliveries[id]
        if d == nil { continue }
        if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
            out = append(out, d.WebhookDelivery)
            if limit > 0 && len(out) >= limit { break }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return nil }
    d.Attempts++
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        d.Status = "delivered"
        now := time.Now()
        d.DeliveredAt = &now
    } else {
        d.Status = "retry"
        d.LastError = lastError
        if nextAttemptAt != nil { d.NextAttemptAt = *nextAttemptAt } else { d.NextAttemptAt = time.Now().Add(1 * time.Minute) }
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return nil }
    d.Status = "failed"
    d.LastError = lastError
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    m.dlq = append(m.dlq, dlqRow{
        ID: uuid.New().String(),
        TenantID: d.TenantID,
        DeliveryID: d.ID,
        EventType: d.EventType,
        URL: d.URL,
        Secret: d.Secret,
        Payload: d.Payload,
        Attempts: d.Attempts + 1,
        LastError: lastError,
        ResponseCode: responseCode,
        LatencyMs: latencyMs,
        CreatedAt: time.Now(),
    })
    return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []map[string]any{}
    ids := m.deliveriesByTenant[tenantID]
    for _, id := range ids {
        d := m.deliveries[id]
        if d == nil { continue }
        if status == "" || d.Status == status {
            item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
            if !d.NextAttemptAt.IsZero() { item["nextAttemptAt"] = d.NextAttemptAt }
            if d.LastError != "" { item["lastError"] = d.LastError }
            out = append(out, item)
            if limit > 0 && len(out) >= limit { break }
        }
    }
    return out, "", nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d != nil && d.TenantID == tenantID {
        d.Status = "pending"
        d.NextAttemptAt = time.Now()
    }
    return nil
}

func (m *Memory) WebhookMetrics(ctx context.Context, tenantID string, since time.Time, eventType, status string, codeMin, codeMax int, buckets []int) ([]map[string]any, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if len(buckets) == 0 { buckets = []int{100, 500, 1000} }
    type agg struct{ cnt, sum int64; b []int64; c [4]int64 }
    by := map[string]*agg{} // key: eventType|status
    for _, id := range m.deliveriesByTenant[tenantID] {
        d := m.deliveries[id]
        if d == nil { continue }
        if !since.IsZero() && d.DeliveredAt != nil && d.DeliveredAt.Before(since) { continue }
        if eventType != "" && d.EventType != eventType { continue }
        if status != "" && d.Status != status { continue }
        if codeMin > 0 && d.ResponseCode < codeMin { continue }
        if codeMax > 0 && d.ResponseCode > codeMax { continue }
        key := d.EventType + "|" + d.Status
        a := by[key]
        if a == nil { a = &agg{b: make([]int64, len(buckets)+1)}; by[key] = a }
        a.cnt++
        if d.LatencyMs > 0 { a.sum += int64(d.LatencyMs) }
        bi := len(buckets)
        for i, edge := range buckets { if d.LatencyMs < edge { bi = i; break } }
        a.b[bi]++
        switch {
        case d.ResponseCode >= 200 && d.ResponseCode <= 299: a.c[0]++
        case d.ResponseCode >= 300 && d.ResponseCode <= 399: a.c[1]++
        case d.ResponseCode >= 400 && d.ResponseCode <= 499: a.c[2]++
        case d.ResponseCode >= 500 && d.ResponseCode <= 599: a.c[3]++
        }
    }
    out := []map[string]any{}
    for k, a := range by {
        sep := strings.IndexByte(k, '|')
        avg := int64(0)
        if a.cnt > 0 { avg = a.sum / a.cnt }
        out = append(out, map[string]any{
            "eventType": k[:sep],
            "status": k[sep+1:],
            "count": a.cnt,
            "avgLatencyMs": avg,
            "latencyBucketEdges": buckets,
            "latencyBucketCounts": a.b,
            "codeClasses": map[string]int64{"c2xx": a.c[0], "c3xx": a.c[1], "c4xx": a.c[2], "c5xx": a.c[3]},
        })
    }
    return out, nil
}

// Dead-letter queue
func (m *Memory) ListWebhookDLQ(ctx context.Context, tenantID, eventType string, olderThan time.Time, codeMin, codeMax int, errorQuery, cursor string, limit int) ([]map[string]any, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if limit <= 0 { limit = 100 }
    start := 0
    if cursor != "" {
        for i := range m.dlq {
            if m.dlq[i].ID == cursor { start = i + 1; break }
        }
    }
    out := []map[string]any{}
    var last string
    for i := start; i < len(m.dlq) && len(out) < limit; i++ {
        r := m.dlq[i]
        if r.TenantID != tenantID { continue }
        if eventType != "" && r.EventType != eventType { continue }
        if !olderThan.IsZero() && !r.CreatedAt.Before(olderThan) { continue }
        if codeMin > 0 && r.ResponseCode < codeMin { continue }
        if codeMax > 0 && r.ResponseCode > codeMax { continue }
        if errorQuery != "" && !strings.Contains(strings.ToLower(r.LastError), strings.ToLower(errorQuery)) { continue }
        out = append(out, map[string]any{"id": r.ID, "deliveryId": r.DeliveryID, "eventType": r.EventType, "url": r.URL, "lastError": r.LastError, "attempts": r.Attempts, "createdAt": r.CreatedAt, "responseCode": r.ResponseCode, "latencyMs": r.LatencyMs})
        last = r.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (m *Memory) RequeueWebhookDLQ(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    return m.requeueDLQLocked(tenantID, id)
}

func (m *Memory) RequeueWebhookDLQBulk(ctx context.Context, tenantID string, ids []string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    for _, id := range ids {
        if err := m.requeueDLQLocked(tenantID, id); err != nil { return err }
    }
    return nil
}

// requeueDLQLocked requires m.mu held.
func (m *Memory) requeueDLQLocked(tenantID, id string) error {
    for i := range m.dlq {
        r := m.dlq[i]
        if r.ID != id || r.TenantID != tenantID { continue }
        m.enqueueLocked(tenantID, r.DeliveryID, r.EventType, r.URL, r.Secret, r.Payload)
        m.dlq = append(m.dlq[:i], m.dlq[i+1:]...)
        return nil
    }
    return ErrNotFound
}

func (m *Memory) DeleteWebhookDLQBulk(ctx context.Context, tenantID string, ids []string, olderThan time.Time) error {
    m.mu.Lock(); defer m.mu.Unlock()
    keep := m.dlq[:0]
    for _, r := range m.dlq {
        drop := false
        if r.TenantID == tenantID {
            if len(ids) > 0 {
                for _, id := range ids { if r.ID == id { drop = true; break } }
            } else if !olderThan.IsZero() && r.CreatedAt.Before(olderThan) {
                drop = true
            }
        }
        if !drop { keep = append(keep, r) }
    }
    m.dlq = keep
    return nil
}

// helper: iterate delivery IDs by tenant order
func (m *Memory) iterDeliveryIDs() []string {
    ids := []string{}
    for _, lst := range m.deliveriesByTenant {
        ids = append(ids, lst...)
    }
    return ids
}

func specKey(year int, mk, mdl string) string { return fmt.Sprintf("%d|%s|%s", year, mk, mdl) }
