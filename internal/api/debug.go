package api

import (
    "encoding/json"
    "net/http"
    "os"
    "time"

    "haulplan/internal/buildinfo"
)

// DebugJSON reports build metadata and which external integrations are
// configured. Secrets themselves are never echoed, only their presence.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "PORT": os.Getenv("PORT"),
            "AUTH_MODE": os.Getenv("AUTH_MODE"),
            "ALLOW_ORIGINS": os.Getenv("ALLOW_ORIGINS"),
            "RATE_RPS": os.Getenv("RATE_RPS"),
            "RATE_BURST": os.Getenv("RATE_BURST"),
            "WEBHOOK_MAX_ATTEMPTS": os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
            "FACILITIES_FILE": os.Getenv("FACILITIES_FILE"),
            "ANALYTICS_ENABLE": os.Getenv("ANALYTICS_ENABLE"),
            "HAS_DATABASE_URL": os.Getenv("DATABASE_URL") != "",
            "HAS_REDIS_URL": os.Getenv("REDIS_URL") != "",
            "HAS_HERE_API_KEY": os.Getenv("HERE_API_KEY") != "",
            "HAS_CARAPI_TOKEN": os.Getenv("CARAPI_TOKEN") != "",
        },
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
