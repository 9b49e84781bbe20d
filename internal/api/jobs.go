package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"haulplan/internal/model"
	"haulplan/internal/opt"
)

// JobCache holds async placement jobs in process. Jobs are ephemeral: a
// restart forgets them, which keeps computed placements out of storage.
type JobCache struct {
	mu sync.Mutex
	m  map[string]model.PlacementJob
}

// NewJobCache constructs a JobCache.
func NewJobCache() *JobCache { return &JobCache{m: map[string]model.PlacementJob{}} }

func (c *JobCache) put(j model.PlacementJob) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[j.ID] = j
}

// get hides jobs from other tenants; a wrong-tenant id reads as missing.
func (c *JobCache) get(tenant, id string) (model.PlacementJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.m[id]
	if !ok || j.TenantID != tenant {
		return model.PlacementJob{}, false
	}
	return j, true
}

func (c *JobCache) update(id string, fn func(*model.PlacementJob)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.m[id]
	if !ok {
		return
	}
	fn(&j)
	c.m[id] = j
}

// PlacementJobsHandler handles POST /v1/placement/jobs: same validation as
// the sync endpoint, then the solve runs in the background while progress
// events stream through the broker.
func (s *Server) PlacementJobsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    pr := s.getPrincipal(r)
    if !pr.CanPlan() { writeProblem(w, 403, "Forbidden", "planner or admin required", r.URL.Path); return }
    var req model.PlacementRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validatePlacementRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid placement request", err.Error(), r.URL.Path)
        return
    }
    p, aerr := s.resolveProblem(r.Context(), pr.Tenant, req)
    if aerr != nil { writeProblem(w, aerr.Status, aerr.Title, aerr.Detail, r.URL.Path); return }
    iters := opt.DefaultMaxIters
    if req.MaxIters != nil { iters = *req.MaxIters }
    seed := int64(opt.DefaultSeed)
    if req.Seed != nil { seed = *req.Seed }

    job := model.PlacementJob{
        ID:        uuid.NewString(),
        TenantID:  pr.Tenant,
        Status:    "queued",
        CreatedAt: time.Now().UTC().Format(time.RFC3339),
    }
    s.Jobs.put(job)
    go s.runPlacementJob(job.ID, pr.Tenant, p, seed, iters)
    writeJSON(w, http.StatusAccepted, job)
}

// runPlacementJob executes one async job. The request context is gone by the
// time this runs, so emission uses the background context.
func (s *Server) runPlacementJob(jobID, tenant string, p opt.Problem, seed int64, iters int) {
    ctx := context.Background()
    s.Jobs.update(jobID, func(j *model.PlacementJob) { j.Status = "running" })
    s.Broker.Publish(jobID, SSEEvent{Type: "placement.progress", Data: map[string]any{
        "jobId": jobID, "status": "running",
    }})
    resp, _ := s.runPlacement(ctx, tenant, "placement-job", p, seed, iters, func(iteration int, fitness float64) {
        s.Broker.Publish(jobID, SSEEvent{Type: "placement.progress", Data: map[string]any{
            "jobId": jobID, "iteration": iteration, "fitness": fitness,
        }})
    })
    now := time.Now().UTC().Format(time.RFC3339)
    s.Jobs.update(jobID, func(j *model.PlacementJob) {
        j.Status = "completed"
        j.FinishedAt = now
        j.Result = &resp
    })
    s.Broker.Publish(jobID, SSEEvent{Type: "placement.completed", Data: map[string]any{
        "jobId": jobID, "feasible": resp.Feasible, "fitness": resp.Scores.Fitness,
    }})
}

// PlacementJobByIDHandler handles GET /v1/placement/jobs/{id} and the SSE
// stream at /v1/placement/jobs/{id}/events/stream
func (s *Server) PlacementJobByIDHandler(w http.ResponseWriter, r *http.Request) {
    path := r.URL.Path
    rest := strings.TrimPrefix(path, "/v1/placement/jobs/")
    if rest == path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    pr := s.getPrincipal(r)
    job, ok := s.Jobs.get(pr.Tenant, id)
    if !ok { writeProblem(w, 404, "Job not found", "", r.URL.Path); return }
    if len(parts) > 1 && parts[1] == "events" && len(parts) > 2 && parts[2] == "stream" {
        if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
        flusher, ok := w.(http.Flusher)
        if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
        w.Header().Set("Content-Type", "text/event-stream")
        w.Header().Set("Cache-Control", "no-cache")
        w.Header().Set("Connection", "keep-alive")
        ch := s.Broker.Subscribe(id)
        defer s.Broker.Unsubscribe(id, ch)
        // initial heartbeat
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"jobId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
        flusher.Flush()
        notify := r.Context().Done()
        for {
            select {
            case <-notify:
                return
            case evt, open := <-ch:
                if !open { return }
                b, _ := json.Marshal(evt.Data)
                fmt.Fprintf(w, "event: %s\n", evt.Type)
                fmt.Fprintf(w, "data: %s\n\n", string(b))
                flusher.Flush()
            case <-time.After(15 * time.Second):
                fmt.Fprintf(w, "event: heartbeat\n")
                fmt.Fprintf(w, "data: {\"jobId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
                flusher.Flush()
            }
        }
    }
    if len(parts) == 1 {
        if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
        writeJSON(w, 200, job)
        return
    }
    writeProblem(w, 404, "Not Found", "", r.URL.Path)
}
