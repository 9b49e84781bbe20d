package carquery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haulplan/internal/integrations"
)

func TestFirstJSONBlock(t *testing.T) {
	got, err := firstJSONBlock(`?({"Trims":[]});`)
	require.NoError(t, err)
	assert.Equal(t, `{"Trims":[]}`, got)

	got, err = firstJSONBlock(`callback({"a":{"b":1}})`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":1}}`, got)

	_, err = firstJSONBlock("no json here")
	assert.Error(t, err)
}

func TestNumField(t *testing.T) {
	v, ok := numField(1433.0)
	require.True(t, ok)
	assert.InDelta(t, 1433, v, 1e-9)

	v, ok = numField("1433")
	require.True(t, ok)
	assert.InDelta(t, 1433, v, 1e-9)

	for _, in := range []any{nil, "", "0", "n/a", []any{}} {
		_, ok := numField(in)
		assert.False(t, ok, "numField(%#v)", in)
	}
}

func newTrimsServer(t *testing.T, body string) (*Client, *[]url.Values) {
	t.Helper()
	var queries []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return &Client{BaseURL: srv.URL, HTTP: srv.Client()}, &queries
}

func TestGetTrimsParsesJSONP(t *testing.T) {
	c, queries := newTrimsServer(t, `?({"Trims":[{"model_name":"Civic","model_height_mm":"1433"}]});`)
	trims, err := c.GetTrims(context.Background(), 2020, "honda", "civic")
	require.NoError(t, err)
	require.Len(t, trims, 1)
	assert.Equal(t, "Civic", trims[0]["model_name"])

	require.Len(t, *queries, 1)
	q := (*queries)[0]
	assert.Equal(t, "getTrims", q.Get("cmd"))
	assert.Equal(t, "honda", q.Get("make"))
	assert.Equal(t, "civic", q.Get("model"))
	assert.Equal(t, "2020", q.Get("year"))
}

func TestLookupSpecsConservativeMax(t *testing.T) {
	c, _ := newTrimsServer(t, `{"Trims":[
		{"model_height_mm":"1433","model_weight_kg":"1257"},
		{"model_height_mm":1450}
	]}`)
	spec, err := c.LookupSpecs(context.Background(), integrations.SpecsQuery{Year: 2020, Make: "honda", Model: "civic"})
	require.NoError(t, err)
	assert.Equal(t, "carquery", spec.Source)
	assert.Equal(t, "getTrims: max across 2 trims", spec.Notes)
	require.NotNil(t, spec.HeightFt)
	assert.InDelta(t, 4.76, *spec.HeightFt, 1e-9)
	require.NotNil(t, spec.WeightLbs)
	assert.InDelta(t, 2771, *spec.WeightLbs, 1e-9)
}

func TestLookupSpecsSkipsPlaceholders(t *testing.T) {
	c, _ := newTrimsServer(t, `{"Trims":[
		{"model_height_mm":"0","model_weight_kg":""},
		{"model_height_mm":null}
	]}`)
	_, err := c.LookupSpecs(context.Background(), integrations.SpecsQuery{Year: 2020, Make: "honda", Model: "civic"})
	assert.ErrorIs(t, err, integrations.ErrNoSpecs)
}

func TestLookupSpecsPartialWeightOnly(t *testing.T) {
	c, _ := newTrimsServer(t, `{"Trims":[{"model_weight_kg":"1500"}]}`)
	spec, err := c.LookupSpecs(context.Background(), integrations.SpecsQuery{Year: 2019, Make: "ford", Model: "escape"})
	require.NoError(t, err)
	assert.Nil(t, spec.HeightFt)
	require.NotNil(t, spec.WeightLbs)
	assert.InDelta(t, 3307, *spec.WeightLbs, 1e-9)
}

func TestLookupSpecsNoTrims(t *testing.T) {
	c, _ := newTrimsServer(t, `{"Trims":[]}`)
	_, err := c.LookupSpecs(context.Background(), integrations.SpecsQuery{Year: 2020, Make: "honda", Model: "civic"})
	assert.ErrorIs(t, err, integrations.ErrNoSpecs)
}
