// Package vpic queries the NHTSA vPIC vehicle API. vPIC knows makes and
// models but no dimensions, so it only backs autocomplete, not spec lookups.
package vpic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://vpic.nhtsa.dot.gov/api/vehicles"

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Result is one row of a vPIC response; make-only endpoints leave the model
// fields zero.
type Result struct {
	MakeID    int    `json:"Make_ID"`
	MakeName  string `json:"Make_Name"`
	ModelID   int    `json:"Model_ID"`
	ModelName string `json:"Model_Name"`
}

// SearchModels lists the models vPIC knows for a make and model year.
func (c *Client) SearchModels(ctx context.Context, year int, mk string) ([]Result, error) {
	u := fmt.Sprintf("%s/GetModelsForMakeYear/make/%s/modelyear/%d?format=json", c.BaseURL, url.PathEscape(mk), year)
	return c.results(ctx, u)
}

// Makes lists every make vPIC knows.
func (c *Client) Makes(ctx context.Context) ([]Result, error) {
	return c.results(ctx, c.BaseURL+"/getallmakes?format=json")
}

func (c *Client) results(ctx context.Context, u string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
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
		return nil, fmt.Errorf("vpic: GET %d: %.200s", resp.StatusCode, body)
	}
	var payload struct {
		Results []Result `json:"Results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("vpic: bad JSON: %w", err)
	}
	return payload.Results, nil
}
