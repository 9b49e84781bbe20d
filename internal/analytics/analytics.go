package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends one JSON object per line to an analytics file. Events are
// best-effort: a disabled or failing logger drops them silently so callers
// can fire-and-forget from request handlers.
type Logger struct {
	mu      sync.Mutex
	path    string
	enabled bool
}

// NewFromEnv builds a Logger from ANALYTICS_ENABLE and ANALYTICS_PATH.
func NewFromEnv() *Logger {
	path := os.Getenv("ANALYTICS_PATH")
	if path == "" {
		path = filepath.Join("data", "events.jsonl")
	}
	return New(path, os.Getenv("ANALYTICS_ENABLE") == "1")
}

func New(path string, enabled bool) *Logger {
	return &Logger{path: path, enabled: enabled}
}

func (l *Logger) Enabled() bool { return l != nil && l.enabled }

// Log appends the event with a ts_iso UTC timestamp.
func (l *Logger) Log(event map[string]any) {
	if !l.Enabled() {
		return
	}
	ev := make(map[string]any, len(event)+1)
	for k, v := range event {
		ev[k] = v
	}
	ev["ts_iso"] = time.Now().UTC().Format(time.RFC3339Nano)
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}

// HashClient derives a stable anonymous id from a client-provided hint. With
// no hint the id is unique per call, never empty.
func HashClient(hint string) string {
	if hint == "" {
		hint = fmt.Sprintf("boot:%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256([]byte(hint))
	return hex.EncodeToString(sum[:])[:16]
}

// RoundCoord rounds a coordinate pair to two decimals for logging, coarse
// enough to avoid storing exact locations.
func RoundCoord(lat, lng float64) [2]float64 {
	return [2]float64{math.Round(lat*100) / 100, math.Round(lng*100) / 100}
}
