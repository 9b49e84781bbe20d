package opt

import "sync"

type runKey struct {
	Tenant string
	Day    string
	Mode   string
}

var (
	runMu   sync.Mutex
	lastRun = map[runKey]Metrics{}
)

// RecordMetrics keeps the most recent run telemetry per tenant, day, and
// solve mode for the admin metrics endpoint.
func RecordMetrics(tenant, day, mode string, m Metrics) {
	runMu.Lock()
	lastRun[runKey{Tenant: tenant, Day: day, Mode: mode}] = m
	runMu.Unlock()
}

// GetMetrics returns recorded run telemetry for a tenant and day, keyed by
// solve mode.
func GetMetrics(tenant, day string) map[string]Metrics {
	runMu.Lock()
	defer runMu.Unlock()
	out := map[string]Metrics{}
	for k, v := range lastRun {
		if k.Tenant == tenant && k.Day == day {
			out[k.Mode] = v
		}
	}
	return out
}
