package api

import (
    "context"
    "encoding/json"
    "os"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
    Subscribe(jobID string) chan SSEEvent
    Unsubscribe(jobID string, ch chan SSEEvent)
    Publish(jobID string, evt SSEEvent)
}

// In-memory broker already implemented in broker.go and satisfies EventBroker

// RedisBroker implements EventBroker over Redis Pub/Sub so job events reach
// subscribers on every replica, not just the one running the solver.
type RedisBroker struct {
    rdb *redis.Client
    mu  sync.Mutex
    ps  map[chan SSEEvent]*redis.PubSub
}

func NewRedisBroker() (*RedisBroker, error) {
    url := os.Getenv("REDIS_URL")
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opt)
    return &RedisBroker{rdb: rdb, ps: map[chan SSEEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(jobID string) chan SSEEvent {
    ch := make(chan SSEEvent, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(jobID))
    // initial consume to ensure subscription
    _, _ = ps.Receive(ctx)
    b.mu.Lock()
    b.ps[ch] = ps
    b.mu.Unlock()
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt SSEEvent
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
                select { case ch <- evt: default: }
            }
        }
    }()
    return ch
}

// Unsubscribe closes the underlying PubSub. Its message channel then drains
// and the pump goroutine closes ch, so ch never closes while a send is
// pending on it.
func (b *RedisBroker) Unsubscribe(jobID string, ch chan SSEEvent) {
    b.mu.Lock()
    ps := b.ps[ch]
    delete(b.ps, ch)
    b.mu.Unlock()
    if ps != nil { _ = ps.Close() }
}

func (b *RedisBroker) Publish(jobID string, evt SSEEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    _ = b.rdb.Publish(ctx, b.chanName(jobID), data).Err()
}

func (b *RedisBroker) chanName(jobID string) string { return "job:" + jobID }
