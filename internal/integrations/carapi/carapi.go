// Package carapi looks up vehicle body specs from the CarAPI bodies/v2
// endpoint, normalizing the catalog's mixed units to feet and pounds.
package carapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"haulplan/internal/integrations"
	"haulplan/internal/model"
)

const defaultBaseURL = "https://carapi.app"

// Client calls CarAPI with an auth preference chain: X-Api-Secret when a
// secret is configured, then Bearer token, then anonymous.
type Client struct {
	BaseURL string
	Token   string
	Secret  string
	HTTP    *http.Client
}

// NewClientFromEnv builds a Client from CARAPI_BASE / CARAPI_TOKEN /
// CARAPI_SECRET.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: cleanBase(os.Getenv("CARAPI_BASE")),
		Token:   strings.TrimSpace(os.Getenv("CARAPI_TOKEN")),
		Secret:  strings.TrimSpace(os.Getenv("CARAPI_SECRET")),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// cleanBase normalizes the base URL; a trailing /api is dropped so both
// https://carapi.app and https://carapi.app/api work.
func cleanBase(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return defaultBaseURL
	}
	if strings.HasSuffix(strings.ToLower(raw), "/api") {
		raw = raw[:len(raw)-4]
	}
	return raw
}

func (c *Client) headerChain() []map[string]string {
	var chain []map[string]string
	if c.Secret != "" {
		chain = append(chain, map[string]string{"Accept": "application/json", "X-Api-Secret": c.Secret})
	}
	if c.Token != "" {
		chain = append(chain, map[string]string{"Accept": "application/json", "Authorization": "Bearer " + c.Token})
	}
	chain = append(chain, map[string]string{"Accept": "application/json"})
	return chain
}

// getJSON walks the auth chain, moving to the next header set on auth-style
// failures and stopping on anything else.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (any, error) {
	u := c.BaseURL + path + "?" + params.Encode()
	var lastErr error
	for _, hdrs := range c.headerChain() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range hdrs {
			req.Header.Set(k, v)
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 400 {
			var payload any
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, fmt.Errorf("carapi: bad JSON at %s: %w", path, err)
			}
			return payload, nil
		}
		text := string(body)
		authFailure := resp.StatusCode == 400 || resp.StatusCode == 401 || resp.StatusCode == 403
		if authFailure && (strings.Contains(text, "InvalidAuthenticationHeaderException") ||
			strings.Contains(strings.ToLower(text), "invalid")) {
			lastErr = fmt.Errorf("carapi: auth failed %d at %s: %.200s", resp.StatusCode, path, text)
			continue
		}
		lastErr = fmt.Errorf("carapi: GET %d at %s: %.200s", resp.StatusCode, path, text)
		break
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("carapi: request failed at %s", path)
	}
	return nil, lastErr
}

// rowsFromPayload accepts a bare array or an object wrapping one under
// data/bodies/items/results.
func rowsFromPayload(payload any) []map[string]any {
	toRows := func(v any) []map[string]any {
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		rows := make([]map[string]any, 0, len(items))
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				rows = append(rows, m)
			}
		}
		return rows
	}
	if rows := toRows(payload); rows != nil {
		return rows
	}
	if m, ok := payload.(map[string]any); ok {
		for _, key := range []string{"data", "bodies", "items", "results"} {
			if rows := toRows(m[key]); rows != nil {
				return rows
			}
		}
	}
	return nil
}

func bodiesParams(year int, mk, mdl string) url.Values {
	return url.Values{
		"direction": {"asc"},
		"year":      {strconv.Itoa(year)},
		"make":      {mk},
		"model":     {mdl},
		"limit":     {"200"},
	}
}

// Name implements integrations.SpecsProvider.
func (c *Client) Name() string { return "carapi" }

// LookupSpecs resolves specs from bodies/v2:
//
//   - with a trim, the best-matching record wins (exact name, then substring,
//     ranked by how many numeric fields it carries)
//   - strategy "first" returns the first record with any numeric field
//   - otherwise records aggregate by median (or max)
func (c *Client) LookupSpecs(ctx context.Context, q integrations.SpecsQuery) (model.VehicleSpecs, error) {
	payload, err := c.getJSON(ctx, "/api/bodies/v2", bodiesParams(q.Year, q.Make, q.Model))
	if err != nil {
		return model.VehicleSpecs{}, err
	}
	items := rowsFromPayload(payload)
	if len(items) == 0 {
		return model.VehicleSpecs{}, integrations.ErrNoSpecs
	}

	selected := items
	usedTrim := ""
	if q.Trim != "" {
		tl := strings.ToLower(strings.TrimSpace(q.Trim))
		var matched []map[string]any
		for _, r := range items {
			if strings.ToLower(trimName(r)) == tl {
				matched = append(matched, r)
			}
		}
		if len(matched) == 0 {
			for _, r := range items {
				if strings.Contains(strings.ToLower(trimName(r)), tl) {
					matched = append(matched, r)
				}
			}
		}
		if len(matched) > 0 {
			sort.SliceStable(matched, func(i, j int) bool {
				return completeness(matched[i]) > completeness(matched[j])
			})
			selected = matched[:1]
			usedTrim = trimName(matched[0])
		}
	}

	strategy := strings.ToLower(q.Strategy)
	if q.Trim == "" && strategy == "first" {
		for _, rec := range selected {
			spec := specFromRecord(rec)
			if spec.HeightFt != nil || spec.LengthFt != nil || spec.WeightLbs != nil {
				spec.Source = "CarAPI)"
				spec.Notes = "bodies/v2: first record with numeric fields"
				return spec, nil
			}
		}
	}

	if len(selected) == 1 {
		spec := specFromRecord(selected[0])
		if spec.HeightFt != nil || spec.LengthFt != nil || spec.WeightLbs != nil {
			if usedTrim != "" {
				spec.Source = "CarAPI bodies/v2 (trim exact)"
				spec.Notes = "bodies/v2: trim=" + usedTrim
			} else {
				spec.Source = "CarAPI bodies/v2 (first)"
				spec.Notes = "bodies/v2: first record"
			}
			return spec, nil
		}
	}

	aggStrategy := "median"
	if strategy == "max" {
		aggStrategy = "max"
	}
	h, l, w := aggregateSpecs(selected, aggStrategy)
	if h != nil || l != nil || w != nil {
		spec := model.VehicleSpecs{
			HeightFt:  h,
			LengthFt:  l,
			WeightLbs: w,
			Source:    fmt.Sprintf("CarAPI bodies/v2 (aggregate: %s, N=%d)", aggStrategy, len(selected)),
		}
		if usedTrim != "" {
			spec.Notes = "trim=" + usedTrim
		}
		return spec, nil
	}
	return model.VehicleSpecs{}, integrations.ErrNoSpecs
}

// ListTrims returns the distinct trim names for a year/make/model, sorted
// case-insensitively.
func (c *Client) ListTrims(ctx context.Context, year int, mk, mdl string) ([]string, error) {
	payload, err := c.getJSON(ctx, "/api/bodies/v2", bodiesParams(year, mk, mdl))
	if err != nil {
		return nil, err
	}
	var trims []string
	seen := map[string]bool{}
	for _, rec := range rowsFromPayload(payload) {
		t := trimName(rec)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		trims = append(trims, t)
	}
	sort.SliceStable(trims, func(i, j int) bool {
		return strings.ToLower(trims[i]) < strings.ToLower(trims[j])
	})
	return trims, nil
}

// ListBodies fetches raw body rows for a model year, for local make/model
// filtering by the options endpoints.
func (c *Client) ListBodies(ctx context.Context, year int) ([]map[string]any, error) {
	params := url.Values{"direction": {"asc"}, "limit": {"200"}}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}
	payload, err := c.getJSON(ctx, "/api/bodies/v2", params)
	if err != nil {
		return nil, err
	}
	return rowsFromPayload(payload), nil
}

func specFromRecord(rec map[string]any) model.VehicleSpecs {
	var spec model.VehicleSpecs
	if v, ok := extractHeightFt(rec); ok {
		spec.HeightFt = &v
	}
	if v, ok := extractLengthFt(rec); ok {
		spec.LengthFt = &v
	}
	if v, ok := extractCurbWeightLbs(rec); ok {
		spec.WeightLbs = &v
	}
	return spec
}

// completeness favors records carrying more numeric fields; height and
// weight count double, length single.
func completeness(rec map[string]any) int {
	s := 0
	if _, ok := extractHeightFt(rec); ok {
		s += 2
	}
	if _, ok := extractCurbWeightLbs(rec); ok {
		s += 2
	}
	if _, ok := extractLengthFt(rec); ok {
		s++
	}
	return s
}

func trimName(rec map[string]any) string {
	for _, k := range []string{"trim", "trim_name", "series", "grade", "name"} {
		if v, ok := rec[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
