// Package routing plans truck routes over the HERE v8 routing API with
// height and weight restrictions applied, surfacing restriction notices and
// falling back to a nearby staging point when the exact drop-off is
// unreachable.
package routing

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"haulplan/internal/geo"
)

const defaultBaseURL = "https://router.hereapi.com/v8/routes"

// GWBUpper is the George Washington Bridge upper deck. It serves as a via
// bias that keeps overheight loads out of the NYC tunnels.
var GWBUpper = geo.Point{Lat: 40.85177, Lng: -73.95272}

// Client calls the HERE v8 routing endpoint.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// NewClientFromEnv builds a Client from HERE_API_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:  strings.TrimSpace(os.Getenv("HERE_API_KEY")),
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 18 * time.Second},
	}
}

// PlanRequest carries the routed endpoints and the truck profile. Zero-valued
// optional dimensions are left out of the HERE query.
type PlanRequest struct {
	Start                 geo.Point
	End                   geo.Point
	HeightM               float64
	WeightKg              float64
	LengthM               float64
	WidthM                float64
	WeightPerAxleKg       float64
	ShippedHazardousGoods string
	TunnelCategory        string
	TotalHeightFt         float64
	FacilitiesFile        string
}

// vehicleParams builds the HERE v8 query for the truck profile. Dimensions go
// out in whole centimeters, weights in whole kilograms. Notices and spans are
// requested up front; callRoute strips them on accounts that reject those
// parameters.
func vehicleParams(req PlanRequest) url.Values {
	p := url.Values{
		"transportMode": {"truck"},
		"routingMode":   {"fast"},
		"return":        {"summary,polyline,actions,notices"},
		"spans":         {"notices"},
	}
	if req.HeightM > 0 {
		p.Set("vehicle[height]", strconv.Itoa(int(math.Round(req.HeightM*100))))
	}
	if req.WidthM > 0 {
		p.Set("vehicle[width]", strconv.Itoa(int(math.Round(req.WidthM*100))))
	}
	if req.LengthM > 0 {
		p.Set("vehicle[length]", strconv.Itoa(int(math.Round(req.LengthM*100))))
	}
	if req.WeightKg > 0 {
		p.Set("vehicle[grossWeight]", strconv.Itoa(int(math.Round(req.WeightKg))))
	}
	if req.WeightPerAxleKg > 0 {
		p.Set("vehicle[weightPerAxle]", strconv.Itoa(int(math.Round(req.WeightPerAxleKg))))
	}
	if req.ShippedHazardousGoods != "" {
		p.Set("vehicle[shippedHazardousGoods]", req.ShippedHazardousGoods)
	}
	if req.TunnelCategory != "" {
		p.Set("vehicle[tunnelCategory]", req.TunnelCategory)
	}
	// 'tunnels' is not a valid avoid feature in v8; keep the difficultTurns bias
	p.Set("avoid[features]", "difficultTurns")
	return p
}

// routeAttempt is the outcome of one HERE call. Raw holds the decoded body
// whether or not the call produced routes.
type routeAttempt struct {
	OK     bool
	Status int
	Err    string
	Raw    map[string]any
}

// envelope mirrors the attempt as a loose map for responses that expose the
// failed call itself.
func (a routeAttempt) envelope() map[string]any {
	m := map[string]any{"ok": a.OK, "status": a.Status, "raw": a.Raw}
	if a.Err != "" {
		m["error"] = a.Err
	}
	return m
}

func (c *Client) get(ctx context.Context, params url.Values) (int, map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	data := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			return 0, nil, err
		}
	}
	return resp.StatusCode, data, nil
}

// wantsLegacyReturn reports whether a 400 body complains about the notices
// return attributes, which older HERE plans reject.
func wantsLegacyReturn(data map[string]any) bool {
	cause, _ := data["cause"].(string)
	if cause == "" {
		cause, _ = data["title"].(string)
	}
	low := strings.ToLower(cause)
	return strings.Contains(low, "invalid value for parameter 'spans'") ||
		strings.Contains(low, "invalid value for parameter 'return'") ||
		strings.Contains(low, "invalid return")
}

// callRoute runs one origin→destination request, retrying once without the
// notices attributes when the account rejects them.
func (c *Client) callRoute(ctx context.Context, origin, dest geo.Point, vparams url.Values, via *geo.Point) routeAttempt {
	params := url.Values{}
	for k, vs := range vparams {
		params[k] = append([]string(nil), vs...)
	}
	params.Set("origin", origin.String())
	params.Set("destination", dest.String())
	if via != nil {
		params.Set("via", via.String())
	}
	params.Set("apikey", c.APIKey)

	status, data, err := c.get(ctx, params)
	if err != nil {
		return routeAttempt{Status: 0, Err: err.Error()}
	}
	if status == http.StatusBadRequest && wantsLegacyReturn(data) {
		params.Del("spans")
		params.Set("return", "summary,polyline,actions")
		status, data, err = c.get(ctx, params)
		if err != nil {
			return routeAttempt{Status: 0, Err: err.Error()}
		}
	}
	ok := status == http.StatusOK && hasRoutes(data)
	return routeAttempt{OK: ok, Status: status, Raw: data}
}

func hasRoutes(data map[string]any) bool {
	routes, ok := data["routes"].([]any)
	return ok && len(routes) > 0
}

// fallbackCandidate is a reachable staging point near an unreachable
// drop-off.
type fallbackCandidate struct {
	Dest geo.Point
	Raw  map[string]any
}

// findReachableNearDest probes rings of offset points around the destination,
// nearest ring first, and keeps the reachable candidate closest to the true
// drop-off. Stops expanding once a ring produces any hit.
func (c *Client) findReachableNearDest(ctx context.Context, start, end geo.Point, vparams url.Values, ringsM, bearings []float64) *fallbackCandidate {
	var best *fallbackCandidate
	bestDist := math.MaxFloat64
	for _, r := range ringsM {
		for _, b := range bearings {
			cand := geo.OffsetPoint(end, r, b)
			resp := c.callRoute(ctx, start, cand, vparams, nil)
			if !resp.OK {
				continue
			}
			dist := geo.HaversineMeters(cand, end)
			if dist < bestDist {
				best = &fallbackCandidate{Dest: cand, Raw: resp.Raw}
				bestDist = dist
			}
		}
		if best != nil {
			break
		}
	}
	return best
}
