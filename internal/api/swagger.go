package api

import (
    "encoding/base64"
    "encoding/json"
    "net/http"

    yaml "gopkg.in/yaml.v3"
)

// SwaggerHandler serves an interactive Swagger UI with the spec inlined and
// auth presets for dev tokens. The driver field only matters for the driver
// role; it rides along as the third token segment and the X-Driver-Id header.
func (s *Server) SwaggerHandler(w http.ResponseWriter, r *http.Request) {
    data, err := openAPILoad()
    if err != nil { writeProblem(w, 500, "OpenAPI not available", err.Error(), r.URL.Path); return }
    var obj map[string]any
    if err := yaml.Unmarshal(data, &obj); err != nil { writeProblem(w, 500, "OpenAPI parse failed", err.Error(), r.URL.Path); return }
    js, _ := json.Marshal(obj)
    b64 := base64.StdEncoding.EncodeToString(js)
    html := `<!DOCTYPE html><html lang="en"><head>
    <title>HaulPlan API Console</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width,initial-scale=1">
    <link rel="stylesheet" href="/static/swagger-ui.css" />
    <style>body{margin:0} .topbar{display:none} .cfg{position:fixed;top:8px;right:8px;padding:8px;background:#fff;border:1px solid #ddd;z-index:9}</style>
    </head><body>
    <div class="cfg">
      <div><strong>HaulPlan Auth</strong></div>
      <div><label>Tenant: <input id="hpTenant" value="t_demo"></label></div>
      <div><label>Role: <select id="hpRole"><option>admin</option><option>planner</option><option>driver</option></select></label></div>
      <div><label>Driver id: <input id="hpDriver" placeholder="drivers only"></label></div>
      <div><label>Bearer token: <input id="hpToken" style="width:240px"></label></div>
      <div><label><input type="checkbox" id="hpDev" checked> Use dev tenant:role token</label></div>
      <button onclick="saveAuth()">Save</button>
    </div>
    <div id="swagger-ui"></div>
    <script src="/static/swagger-ui-bundle.js"></script>
    <script src="/static/swagger-ui-standalone-preset.js"></script>
    <script>
    const spec = JSON.parse(atob('` + b64 + `'));
    const fields = ['Tenant','Role','Driver','Token'];
    function loadAuth(){
      const p = {};
      for (const f of fields) {
        const el = document.getElementById('hp'+f);
        const v = localStorage.getItem('hp.'+f.toLowerCase());
        if (v !== null) el.value = v;
        p[f.toLowerCase()] = el.value;
      }
      const dev = localStorage.getItem('hp.dev');
      if (dev !== null) document.getElementById('hpDev').checked = dev === '1';
      p.dev = document.getElementById('hpDev').checked;
      return p;
    }
    function saveAuth(){
      for (const f of fields) localStorage.setItem('hp.'+f.toLowerCase(), document.getElementById('hp'+f).value);
      localStorage.setItem('hp.dev', document.getElementById('hpDev').checked ? '1' : '0');
      alert('Saved');
    }
    loadAuth();
    const ui = SwaggerUIBundle({
        spec: spec,
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
        layout: "BaseLayout",
        requestInterceptor: (req) => {
            const p = loadAuth();
            if (p.dev && p.tenant && p.role) {
                let tok = p.tenant + ':' + p.role;
                if (p.role === 'driver' && p.driver) tok += ':' + p.driver;
                req.headers['Authorization'] = 'Bearer ' + tok;
            } else if (p.token) { req.headers['Authorization'] = 'Bearer ' + p.token; }
            if (p.tenant) req.headers['X-Tenant-Id'] = p.tenant;
            if (p.role) req.headers['X-Role'] = p.role;
            if (p.role === 'driver' && p.driver) req.headers['X-Driver-Id'] = p.driver;
            return req;
        }
    });
    </script>
    </body></html>`
    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    _, _ = w.Write([]byte(html))
}
