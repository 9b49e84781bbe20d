package api

import (
    "net/http"
    "os"
)

// openAPILoad reads the OpenAPI document shipped at openapi/openapi.yaml.
func openAPILoad() ([]byte, error) {
    return os.ReadFile("openapi/openapi.yaml")
}

// OpenAPIHandler serves the raw spec
func (s *Server) OpenAPIHandler(w http.ResponseWriter, r *http.Request) {
    b, err := openAPILoad()
    if err != nil { writeProblem(w, 500, "OpenAPI not available", err.Error(), r.URL.Path); return }
    w.Header().Set("Content-Type", "application/yaml")
    w.WriteHeader(200)
    _, _ = w.Write(b)
}

// DocsHandler serves a ReDoc page for /openapi.yaml. The local bundle under
// /static wins when present; otherwise the page falls back to the CDN.
func (s *Server) DocsHandler(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(200)
    _, _ = w.Write([]byte(`<!DOCTYPE html><html><head><title>HaulPlan API Docs</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    </head><body>
    <redoc spec-url="/openapi.yaml"></redoc>
    <script src="/static/redoc.standalone.js"
      onerror="var s=document.createElement('script');s.src='https://cdn.jsdelivr.net/npm/redoc@next/bundles/redoc.standalone.js';document.body.appendChild(s);"></script>
    </body></html>`))
}
