package store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    _ "github.com/jackc/pgx/v5/stdlib"
    "github.com/google/uuid"
    "encoding/json"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "crypto/sha256"
    "encoding/hex"

    "haulplan/internal/model"
    "haulplan/internal/opt"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
    return p.db.PingContext(ctx)
}

// MigrateDir applies every .sql file in dir in lexical order. Migrations
// are idempotent (CREATE TABLE IF NOT EXISTS), so reapplying is safe.
func (p *Postgres) MigrateDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil { return err }
    names := []string{}
    for _, e := range entries {
        if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") { names = append(names, e.Name()) }
    }
    sort.Strings(names)
    for _, name := range names {
        b, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil { return err }
        if _, err := p.db.Exec(string(b)); err != nil { return fmt.Errorf("migrate %s: %w", name, err) }
    }
    return nil
}

// Rig profiles
func (p *Postgres) CreateRig(ctx context.Context, tenantID string, in model.RigProfileIn) (model.RigProfile, error) {
    id := uuid.New().String()
    rig, _ := json.Marshal(opt.RigSpecFromInput(in.Rig))
    slots, _ := json.Marshal(opt.SlotSpecsFromInput(in.Slots))
    _, err := p.db.ExecContext(ctx, `INSERT INTO rigs (id, tenant_id, name, description, rig, slots) VALUES ($1,$2,$3,$4,$5,$6)`,
        id, tenantID, in.Name, nullIfEmpty(in.Description), rig, slots)
    if err != nil { return model.RigProfile{}, err }
    return p.GetRig(ctx, tenantID, id)
}

func (p *Postgres) GetRig(ctx context.Context, tenantID, id string) (model.RigProfile, error) {
    var r model.RigProfile
    var rig, slots []byte
    var created, updated time.Time
    row := p.db.QueryRowContext(ctx, `SELECT id::text, name, COALESCE(description,''), rig, slots, created_at, updated_at FROM rigs WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
    if err := row.Scan(&r.ID, &r.Name, &r.Description, &rig, &slots, &created, &updated); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return r, ErrNotFound }
        return r, err
    }
    r.TenantID = tenantID
    _ = json.Unmarshal(rig, &r.Rig)
    _ = json.Unmarshal(slots, &r.Slots)
    r.CreatedAt = created.UTC().Format(time.RFC3339)
    r.UpdatedAt = updated.UTC().Format(time.RFC3339)
    return r, nil
}

func (p *Postgres) ListRigs(ctx context.Context, tenantID, cursor string, limit int) ([]model.RigProfile, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, name, COALESCE(description,''), rig, slots, created_at, updated_at FROM rigs WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, name, COALESCE(description,''), rig, slots, created_at, updated_at FROM rigs WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.RigProfile{}
    var last string
    for rows.Next() {
        var r model.RigProfile
        var rig, slots []byte
        var created, updated time.Time
        if err := rows.Scan(&r.ID, &r.Name, &r.Description, &rig, &slots, &created, &updated); err != nil { return nil, "", err }
        r.TenantID = tenantID
        _ = json.Unmarshal(rig, &r.Rig)
        _ = json.Unmarshal(slots, &r.Slots)
        r.CreatedAt = created.UTC().Format(time.RFC3339)
        r.UpdatedAt = updated.UTC().Format(time.RFC3339)
        out = append(out, r)
        last = r.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) UpdateRig(ctx context.Context, tenantID, id string, in model.RigProfileIn) (model.RigProfile, error) {
    // Read current, overwrite provided fields, then update
    r, err := p.GetRig(ctx, tenantID, id)
    if err != nil { return r, err }
    if in.Name != "" { r.Name = in.Name }
    if in.Description != "" { r.Description = in.Description }
    if in.Rig != nil { r.Rig = opt.RigSpecFromInput(in.Rig) }
    if in.Slots != nil { r.Slots = opt.SlotSpecsFromInput(in.Slots) }
    rig, _ := json.Marshal(r.Rig)
    slots, _ := json.Marshal(r.Slots)
    _, err = p.db.ExecContext(ctx, `UPDATE rigs SET name=$1, description=$2, rig=$3, slots=$4, updated_at=now() WHERE tenant_id=$5 AND id::text=$6`,
        r.Name, nullIfEmpty(r.Description), rig, slots, tenantID, id)
    if err != nil { return r, err }
    return p.GetRig(ctx, tenantID, id)
}

func (p *Postgres) DeleteRig(ctx context.Context, tenantID, id string) error {
    res, err := p.db.ExecContext(ctx, `DELETE FROM rigs WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

// Vehicle spec cache
func (p *Postgres) GetVehicleSpecs(ctx context.Context, year int, mk, mdl string) (model.VehicleSpecs, error) {
    var s model.VehicleSpecs
    var h, l, w sql.NullFloat64
    row := p.db.QueryRowContext(ctx, `SELECT height_ft, length_ft, weight_lbs, COALESCE(source,''), COALESCE(notes,'') FROM vehicle_specs_cache WHERE year=$1 AND make=$2 AND model=$3`, year, mk, mdl)
    if err := row.Scan(&h, &l, &w, &s.Source, &s.Notes); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return s, ErrNotFound }
        return s, err
    }
    if h.Valid { v := h.Float64; s.HeightFt = &v }
    if l.Valid { v := l.Float64; s.LengthFt = &v }
    if w.Valid { v := w.Float64; s.WeightLbs = &v }
    return s, nil
}

func (p *Postgres) PutVehicleSpecs(ctx context.Context, year int, mk, mdl string, spec model.VehicleSpecs) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO vehicle_specs_cache (year, make, model, height_ft, length_ft, weight_lbs, source, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (year, make, model) DO UPDATE SET height_ft=EXCLUDED.height_ft, length_ft=EXCLUDED.length_ft, weight_lbs=EXCLUDED.weight_lbs, source=EXCLUDED.source, notes=EXCLUDED.notes, updated_at=now()`,
        year, mk, mdl, spec.HeightFt, spec.LengthFt, spec.WeightLbs, nullIfEmpty(spec.Source), nullIfEmpty(spec.Notes))
    return err
}

// Geocode cache
func (p *Postgres) GetGeocode(ctx context.Context, query string) (model.GeocodeResult, error) {
    var g model.GeocodeResult
    row := p.db.QueryRowContext(ctx, `SELECT lat, lng, COALESCE(label,'') FROM geocode_cache WHERE query=$1`, query)
    if err := row.Scan(&g.Lat, &g.Lng, &g.Label); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return g, ErrNotFound }
        return g, err
    }
    return g, nil
}

func (p *Postgres) PutGeocode(ctx context.Context, query string, res model.GeocodeResult) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO geocode_cache (query, lat, lng, label) VALUES ($1,$2,$3,$4)
        ON CONFLICT (query) DO UPDATE SET lat=EXCLUDED.lat, lng=EXCLUDED.lng, label=EXCLUDED.label, updated_at=now()`,
        query, res.Lat, res.Lng, nullIfEmpty(res.Label))
    return err
}

// Subscriptions
func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    id := uuid.New().String()
    ev, _ := json.Marshal(req.Events)
    _, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, req.Secret)
    if err != nil { return model.Subscription{}, err }
    return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND events @> $2::jsonb`, tenantID, fmt.Sprintf("[\"%s\"]", eventType))
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        var s model.Subscription
        var events any
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &events); err != nil { return nil, err }
        s.TenantID = tenantID
        if b, ok := events.([]byte); ok { _ = json.Unmarshal(b, &s.Events) }
        out = append(out, s)
    }
    return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    var out []model.Subscription
    var last string
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
        last = s.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    _, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
    return err
}

// Webhook deliveries
func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    dk := computeDedupKey(payload)
    _, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now(),$8)
        ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`, id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        var payload []byte
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &payload, &d.Status, &d.Attempts); err != nil { return nil, err }
        d.Payload = payload
        out = append(out, d)
    }
    return out, nil
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if !success {
        if nextAttemptAt == nil { t := time.Now().Add(1 * time.Minute); nextAttemptAt = &t }
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$1, next_attempt_at=$2, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id::text=$3`, nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
        return err
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id::text=$1`, id, responseCode, latencyMs)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id::text=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
    if err != nil { return err }
    // move to DLQ
    _, err = p.db.ExecContext(ctx, `INSERT INTO webhook_dlq (id, tenant_id, delivery_id, event_type, url, secret, payload, attempts, last_error, response_code, latency_ms)
        SELECT gen_random_uuid(), tenant_id, id, event_type, url, secret, payload, attempts+1, $2, $3, $4 FROM webhook_deliveries WHERE id::text=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
    return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url FROM webhook_deliveries WHERE tenant_id=$1`
    var rows *sql.Rows
    var err error
    if status != "" {
        q += ` AND status=$2 ORDER BY id LIMIT $3`
        rows, err = p.db.QueryContext(ctx, q, tenantID, status, limit)
    } else {
        q += ` ORDER BY id LIMIT $2`
        rows, err = p.db.QueryContext(ctx, q, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, typ, st, lastErr, url string
        var attempts int
        var nextAt sql.NullTime
        if err := rows.Scan(&id, &typ, &st, &attempts, &nextAt, &lastErr, &url); err != nil { return nil, "", err }
        m := map[string]any{"id": id, "eventType": typ, "status": st, "attempts": attempts, "url": url}
        if nextAt.Valid { m["nextAttemptAt"] = nextAt.Time }
        if lastErr != "" { m["lastError"] = lastErr }
        out = append(out, m)
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now() WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
    return err
}

func (p *Postgres) WebhookMetrics(ctx context.Context, tenantID string, since time.Time, eventType, status string, codeMin, codeMax int, buckets []int) ([]map[string]any, error) {
    if len(buckets) == 0 { buckets = []int{100, 500, 1000} }
    sel := `SELECT event_type, status, COUNT(*) AS cnt, COALESCE(AVG(latency_ms),0)::bigint AS avg_latency_ms`
    for i, edge := range buckets {
        if i == 0 {
            sel += fmt.Sprintf(", SUM(CASE WHEN COALESCE(latency_ms,0) < %d THEN 1 ELSE 0 END) AS b%d", edge, i)
        } else {
            prev := buckets[i-1]
            sel += fmt.Sprintf(", SUM(CASE WHEN COALESCE(latency_ms,0) >= %d AND COALESCE(latency_ms,0) < %d THEN 1 ELSE 0 END) AS b%d", prev, edge, i)
        }
    }
    sel += fmt.Sprintf(", SUM(CASE WHEN COALESCE(latency_ms,0) >= %d THEN 1 ELSE 0 END) AS b%d", buckets[len(buckets)-1], len(buckets))
    sel += ", SUM(CASE WHEN COALESCE(response_code,0) BETWEEN 200 AND 299 THEN 1 ELSE 0 END) AS c2xx, SUM(CASE WHEN COALESCE(response_code,0) BETWEEN 300 AND 399 THEN 1 ELSE 0 END) AS c3xx, SUM(CASE WHEN COALESCE(response_code,0) BETWEEN 400 AND 499 THEN 1 ELSE 0 END) AS c4xx, SUM(CASE WHEN COALESCE(response_code,0) BETWEEN 500 AND 599 THEN 1 ELSE 0 END) AS c5xx"
    q := sel + ` FROM webhook_deliveries WHERE tenant_id=$1 AND updated_at >= $2`
    args := []any{tenantID, since}
    idx := 3
    if eventType != "" { q += ` AND event_type=$` + fmt.Sprint(idx); args = append(args, eventType); idx++ }
    if status != "" { q += ` AND status=$` + fmt.Sprint(idx); args = append(args, status); idx++ }
    if codeMin > 0 { q += ` AND COALESCE(response_code,0) >= $` + fmt.Sprint(idx); args = append(args, codeMin); idx++ }
    if codeMax > 0 { q += ` AND COALESCE(response_code,0) <= $` + fmt.Sprint(idx); args = append(args, codeMax); idx++ }
    q += ` GROUP BY event_type, status`
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []map[string]any{}
    for rows.Next() {
        cols := 4 + len(buckets) + 1 + 4 // et, st, cnt, avg + buckets + overflow + code classes
        scan := make([]any, cols)
        var et, st string
        var cnt, avg int64
        scan[0] = &et; scan[1] = &st; scan[2] = &cnt; scan[3] = &avg
        bucketVals := make([]int64, len(buckets)+1)
        for i := range bucketVals { scan[4+i] = &bucketVals[i] }
        base := 4 + len(bucketVals)
        var c2, c3, c4, c5 int64
        scan[base+0] = &c2; scan[base+1] = &c3; scan[base+2] = &c4; scan[base+3] = &c5
        if err := rows.Scan(scan...); err != nil { return nil, err }
        out = append(out, map[string]any{
            "eventType": et,
            "status": st,
            "count": cnt,
            "avgLatencyMs": avg,
            "latencyBucketEdges": buckets,
            "latencyBucketCounts": bucketVals,
            "codeClasses": map[string]int64{"c2xx": c2, "c3xx": c3, "c4xx": c4, "c5xx": c5},
        })
    }
    return out, nil
}

// Dead-letter queue
func (p *Postgres) ListWebhookDLQ(ctx context.Context, tenantID, eventType string, olderThan time.Time, codeMin, codeMax int, errorQuery, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    base := `SELECT id::text, delivery_id::text, event_type, url, COALESCE(last_error,''), attempts, created_at, COALESCE(response_code,0), COALESCE(latency_ms,0) FROM webhook_dlq WHERE tenant_id=$1`
    args := []any{tenantID}
    idx := 2
    if eventType != "" { base += ` AND event_type=$` + fmt.Sprint(idx); args = append(args, eventType); idx++ }
    if !olderThan.IsZero() { base += ` AND created_at < $` + fmt.Sprint(idx); args = append(args, olderThan); idx++ }
    if codeMin > 0 { base += ` AND COALESCE(response_code,0) >= $` + fmt.Sprint(idx); args = append(args, codeMin); idx++ }
    if codeMax > 0 { base += ` AND COALESCE(response_code,0) <= $` + fmt.Sprint(idx); args = append(args, codeMax); idx++ }
    if errorQuery != "" { base += ` AND last_error ILIKE $` + fmt.Sprint(idx); args = append(args, "%"+errorQuery+"%"); idx++ }
    order := ` ORDER BY id`
    var rows *sql.Rows
    var err error
    if cursor != "" {
        q := base + ` AND id::text > $` + fmt.Sprint(idx) + order + ` LIMIT $` + fmt.Sprint(idx+1)
        args = append(args, cursor, limit)
        rows, err = p.db.QueryContext(ctx, q, args...)
    } else {
        q := base + order + ` LIMIT $` + fmt.Sprint(idx)
        args = append(args, limit)
        rows, err = p.db.QueryContext(ctx, q, args...)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, delID, et, url, errStr string
        var attempts int
        var created time.Time
        var code, latency int
        if err := rows.Scan(&id, &delID, &et, &url, &errStr, &attempts, &created, &code, &latency); err != nil { return nil, "", err }
        out = append(out, map[string]any{"id": id, "deliveryId": delID, "eventType": et, "url": url, "lastError": errStr, "attempts": attempts, "createdAt": created, "responseCode": code, "latencyMs": latency})
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) RequeueWebhookDLQ(ctx context.Context, tenantID, id string) error {
    var delID, et, url, secret string
    var payload []byte
    err := p.db.QueryRowContext(ctx, `SELECT COALESCE(delivery_id::text,''), event_type, url, COALESCE(secret,''), payload FROM webhook_dlq WHERE tenant_id=$1 AND id::text=$2`, tenantID, id).Scan(&delID, &et, &url, &secret, &payload)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) { return ErrNotFound }
        return err
    }
    if _, err := p.EnqueueWebhook(ctx, tenantID, delID, et, url, secret, payload); err != nil { return err }
    _, err = p.db.ExecContext(ctx, `DELETE FROM webhook_dlq WHERE tenant_id=$1 AND id::text=$2`, tenantID, id)
    return err
}

func (p *Postgres) RequeueWebhookDLQBulk(ctx context.Context, tenantID string, ids []string) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func(){ _ = tx.Rollback() }()
    for _, id := range ids {
        var delID, et, url, secret string
        var payload []byte
        if err := tx.QueryRowContext(ctx, `SELECT COALESCE(delivery_id::text,''), event_type, url, COALESCE(secret,''), payload FROM webhook_dlq WHERE tenant_id=$1 AND id::text=$2`, tenantID, id).Scan(&delID, &et, &url, &secret, &payload); err != nil { return err }
        if _, err := p.EnqueueWebhook(ctx, tenantID, delID, et, url, secret, payload); err != nil { return err }
        if _, err := tx.ExecContext(ctx, `DELETE FROM webhook_dlq WHERE tenant_id=$1 AND id::text=$2`, tenantID, id); err != nil { return err }
    }
    return tx.Commit()
}

func (p *Postgres) DeleteWebhookDLQBulk(ctx context.Context, tenantID string, ids []string, olderThan time.Time) error {
    if len(ids) > 0 {
        for _, id := range ids {
            if _, err := p.db.ExecContext(ctx, `DELETE FROM webhook_dlq WHERE tenant_id=$1 AND id::text=$2`, tenantID, id); err != nil { return err }
        }
        return nil
    }
    if !olderThan.IsZero() {
        _, err := p.db.ExecContext(ctx, `DELETE FROM webhook_dlq WHERE tenant_id=$1 AND created_at < $2`, tenantID, olderThan)
        return err
    }
    return nil
}

// computeDedupKey prefers the event's own id so retries of the same event
// collapse; otherwise a short payload hash stands in.
func computeDedupKey(payload []byte) string {
    var m map[string]any
    if json.Unmarshal(payload, &m) == nil {
        if v, ok := m["id"].(string); ok && v != "" {
            return v
        }
    }
    sum := sha256.Sum256(payload)
    return hex.EncodeToString(sum[:8])
}

// Helpers
func nullIfEmpty(s string) any { if s == "" { return nil }; return s }
