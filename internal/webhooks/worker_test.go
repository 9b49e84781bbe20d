package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"haulplan/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []markRec
	fails []failRec
}
type markRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type failRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, markRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}
func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, failRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerProcessOnceDeliversAndSigns(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	body := []byte(`{"id":"evt_1","type":"placement.computed"}`)
	id, err := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", "placement.computed", srv.URL, "secret", body)
	if err != nil || id == "" {
		t.Fatalf("enqueue failed: %v", err)
	}

	w.processOnce()

	if gotType != "placement.computed" {
		t.Fatalf("wrong event type header: %q", gotType)
	}
	if !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatalf("signature did not verify: sig=%q", gotSig)
	}
	if len(rs.marks) != 1 || !rs.marks[0].Success {
		t.Fatalf("expected one successful mark, got: %+v", rs.marks)
	}
}

func TestWorkerProcessOnceRetryRecordsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(503) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 5}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "t1", "", "route.planned", srv.URL, "", []byte(`{}`))

	w.processOnce()

	if len(rs.fails) != 0 {
		t.Fatalf("first attempt should retry, not fail: %+v", rs.fails)
	}
	if len(rs.marks) != 1 || rs.marks[0].Success {
		t.Fatalf("expected one failed mark, got: %+v", rs.marks)
	}
	if rs.marks[0].LastErr != "http 503" {
		t.Fatalf("expected status error, got %q", rs.marks[0].LastErr)
	}
}

func TestWorkerExhaustionMovesToDLQ(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 1}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "t1", "", "load.flagged", srv.URL, "", []byte(`{}`))

	w.processOnce()

	if len(rs.fails) != 1 {
		t.Fatalf("expected fail after exhausting attempts, got: %+v", rs.fails)
	}
	rows, _, err := rs.Memory.ListWebhookDLQ(context.Background(), "t1", "", time.Time{}, 0, 0, "", "", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one dead-letter row, got %d (err %v)", len(rows), err)
	}
	if rows[0]["eventType"] != "load.flagged" || rows[0]["lastError"] != "http 500" {
		t.Fatalf("unexpected dead-letter row: %+v", rows[0])
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"type":"placement.computed","data":{"fitness":-112.5}}`)
	sig := SignHMAC("s3cret", body)
	if !VerifyHMAC("s3cret", body, sig) {
		t.Fatalf("valid signature rejected")
	}
	if VerifyHMAC("s3cret", append(body, 'x'), sig) {
		t.Fatalf("tampered body accepted")
	}
	if VerifyHMAC("other", body, sig) {
		t.Fatalf("wrong secret accepted")
	}
	if VerifyHMAC("s3cret", body, "not-hex") {
		t.Fatalf("non-hex signature accepted")
	}
}

func TestNextBackoff(t *testing.T) {
	if d := nextBackoff(0); d != time.Second {
		t.Fatalf("attempt 0: %v", d)
	}
	if d := nextBackoff(3); d != 8*time.Second {
		t.Fatalf("attempt 3: %v", d)
	}
	if d := nextBackoff(50); d != time.Hour {
		t.Fatalf("expected cap at one hour, got %v", d)
	}
}
