// Package carquery resolves vehicle dimensions from the public CarQuery API.
// CarQuery replies in JSONP, so responses are unwrapped before decoding.
package carquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"haulplan/internal/integrations"
	"haulplan/internal/model"
)

const defaultBaseURL = "https://www.carqueryapi.com/api/0.3/"

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// firstJSONBlock strips a JSONP wrapper by slicing from the first "{" to the
// last "}".
func firstJSONBlock(s string) (string, error) {
	i := strings.Index(s, "{")
	j := strings.LastIndex(s, "}")
	if i < 0 || j < i {
		return "", errors.New("carquery: no JSON object in response")
	}
	return s[i : j+1], nil
}

// GetTrims fetches the raw trim records for a year/make/model.
func (c *Client) GetTrims(ctx context.Context, year int, mk, mdl string) ([]map[string]any, error) {
	params := url.Values{
		"cmd":   {"getTrims"},
		"make":  {mk},
		"model": {mdl},
		"year":  {strconv.Itoa(year)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("carquery: GET %d: %.200s", resp.StatusCode, body)
	}
	block, err := firstJSONBlock(string(body))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Trims []map[string]any `json:"Trims"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil, fmt.Errorf("carquery: bad JSON: %w", err)
	}
	return payload.Trims, nil
}

// Name implements integrations.SpecsProvider.
func (c *Client) Name() string { return "carquery" }

// LookupSpecs takes the conservative maximum of height and curb weight
// across all trims for the year/make/model. Placeholder values (empty or
// "0") are skipped.
func (c *Client) LookupSpecs(ctx context.Context, q integrations.SpecsQuery) (model.VehicleSpecs, error) {
	trims, err := c.GetTrims(ctx, q.Year, q.Make, q.Model)
	if err != nil {
		return model.VehicleSpecs{}, err
	}
	if len(trims) == 0 {
		return model.VehicleSpecs{}, integrations.ErrNoSpecs
	}
	var heights, weights []float64
	for _, tr := range trims {
		if v, ok := numField(tr["model_height_mm"]); ok {
			heights = append(heights, math.Round(v/304.8*100)/100)
		}
		if v, ok := numField(tr["model_weight_kg"]); ok {
			weights = append(weights, math.Round(v*2.20462262185))
		}
	}
	if len(heights) == 0 && len(weights) == 0 {
		return model.VehicleSpecs{}, integrations.ErrNoSpecs
	}
	spec := model.VehicleSpecs{
		Source: "carquery",
		Notes:  fmt.Sprintf("getTrims: max across %d trims", len(trims)),
	}
	if v, ok := maxOf(heights); ok {
		spec.HeightFt = &v
	}
	if v, ok := maxOf(weights); ok {
		spec.WeightLbs = &v
	}
	return spec, nil
}

// numField parses a trim field that may arrive as a number or a numeric
// string; nil and the placeholder strings "" and "0" are misses.
func numField(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" || s == "0" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func maxOf(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}
