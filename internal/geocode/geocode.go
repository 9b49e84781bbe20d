package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"haulplan/internal/geo"
	"haulplan/internal/metrics"
	"haulplan/internal/model"
)

// ErrNoMatch is returned when every lookup strategy fails for a query.
var ErrNoMatch = errors.New("geocode: no match")

const defaultBaseURL = "https://geocode.search.hereapi.com/v1/geocode"

var (
	latLngRE = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)
	// "Baltimore, MD" | "New York, NY" | optional trailing ", USA"
	cityStateRE = regexp.MustCompile(`^\s*([A-Za-z .'-]+)\s*,\s*([A-Za-z]{2})(?:\s*,\s*USA)?\s*$`)
)

// Cache stores resolved queries so repeat lookups skip the network.
// Implementations return an error on miss.
type Cache interface {
	GetGeocode(ctx context.Context, query string) (model.GeocodeResult, error)
	PutGeocode(ctx context.Context, query string, res model.GeocodeResult) error
}

// Client resolves free-form place text against the HERE geocoding API.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Cache   Cache
}

// NewClientFromEnv builds a Client from HERE_API_KEY. The cache is optional
// and attached by the caller.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:  strings.TrimSpace(os.Getenv("HERE_API_KEY")),
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// TryParseLatLng reports whether text is a bare "lat,lng" pair inside
// WGS84 bounds.
func TryParseLatLng(text string) (geo.Point, bool) {
	m := latLngRE.FindStringSubmatch(text)
	if m == nil {
		return geo.Point{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.Point{}, false
	}
	return p, true
}

// looksLikeOcean flags null-island artifacts HERE occasionally returns for
// unparseable queries.
func looksLikeOcean(p geo.Point) bool {
	return math.Abs(p.Lat) < 0.2 && math.Abs(p.Lng) < 0.2
}

// reasonableUS is a loose CONUS bounding box.
func reasonableUS(p geo.Point) bool {
	return p.Lat >= 24.0 && p.Lat <= 50.0 && p.Lng >= -125.0 && p.Lng <= -66.0
}

// CacheKey normalizes a query for cache lookup: lower-cased with runs of
// whitespace collapsed.
func CacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

type hereResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Address struct {
			Label string `json:"label"`
		} `json:"address"`
		Position struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
	} `json:"items"`
}

func (c *Client) call(ctx context.Context, params url.Values) (geo.Point, string, bool) {
	if c.APIKey == "" {
		return geo.Point{}, "", false
	}
	params.Set("apiKey", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return geo.Point{}, "", false
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return geo.Point{}, "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, "", false
	}
	var out hereResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return geo.Point{}, "", false
	}
	if len(out.Items) == 0 {
		return geo.Point{}, "", false
	}
	best := out.Items[0]
	label := best.Title
	if label == "" {
		label = best.Address.Label
	}
	if label == "" {
		label = params.Get("q")
	}
	if label == "" {
		label = params.Get("qq")
	}
	return geo.Point{Lat: best.Position.Lat, Lng: best.Position.Lng}, label, true
}

// Resolve turns free-form place text into coordinates plus a display label.
//
// Attempt order:
//  1. bare "lat,lng" passthrough
//  2. "City, ST" as a structured qq lookup pinned to USA
//  3. free-form with countryCode:USA, then countryCode:US, then unfiltered
//
// Filtered attempts must land inside the CONUS box; the unfiltered pass only
// rejects null-island results. Network hits are cached, passthroughs are not.
func (c *Client) Resolve(ctx context.Context, query string) (model.GeocodeResult, error) {
	if p, ok := TryParseLatLng(query); ok {
		metrics.GeocodeLookups.WithLabelValues("direct").Inc()
		return model.GeocodeResult{
			Lat:   p.Lat,
			Lng:   p.Lng,
			Label: fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng),
		}, nil
	}

	key := CacheKey(query)
	if c.Cache != nil {
		if res, err := c.Cache.GetGeocode(ctx, key); err == nil {
			metrics.GeocodeLookups.WithLabelValues("cache").Inc()
			return res, nil
		}
	}

	if m := cityStateRE.FindStringSubmatch(query); m != nil {
		city := strings.TrimSpace(m[1])
		st := strings.ToUpper(strings.TrimSpace(m[2]))
		params := url.Values{
			"qq":    {fmt.Sprintf("city=%s;state=%s;country=USA", city, st)},
			"limit": {"1"},
		}
		if p, label, ok := c.call(ctx, params); ok && !looksLikeOcean(p) && reasonableUS(p) {
			return c.store(ctx, key, p, label), nil
		}
	}

	for _, in := range []string{"countryCode:USA", "countryCode:US", ""} {
		params := url.Values{"q": {query}, "limit": {"1"}}
		if in != "" {
			params.Set("in", in)
		}
		p, label, ok := c.call(ctx, params)
		if !ok || looksLikeOcean(p) {
			continue
		}
		if in != "" && !reasonableUS(p) {
			continue
		}
		return c.store(ctx, key, p, label), nil
	}
	return model.GeocodeResult{}, fmt.Errorf("%w: %q", ErrNoMatch, query)
}

func (c *Client) store(ctx context.Context, key string, p geo.Point, label string) model.GeocodeResult {
	metrics.GeocodeLookups.WithLabelValues("here").Inc()
	res := model.GeocodeResult{Lat: p.Lat, Lng: p.Lng, Label: label}
	if c.Cache != nil {
		_ = c.Cache.PutGeocode(ctx, key, res)
	}
	return res
}
