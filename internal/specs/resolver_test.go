package specs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haulplan/internal/integrations"
	"haulplan/internal/model"
)

type fakeProvider struct {
	name  string
	spec  model.VehicleSpecs
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) LookupSpecs(ctx context.Context, q integrations.SpecsQuery) (model.VehicleSpecs, error) {
	f.calls++
	return f.spec, f.err
}

type memSpecCache struct {
	entries map[string]model.VehicleSpecs
	puts    int
}

func newMemSpecCache() *memSpecCache {
	return &memSpecCache{entries: map[string]model.VehicleSpecs{}}
}

func (c *memSpecCache) key(year int, mk, mdl string) string {
	return fmt.Sprintf("%d|%s|%s", year, mk, mdl)
}

func (c *memSpecCache) GetVehicleSpecs(ctx context.Context, year int, mk, mdl string) (model.VehicleSpecs, error) {
	if spec, ok := c.entries[c.key(year, mk, mdl)]; ok {
		return spec, nil
	}
	return model.VehicleSpecs{}, errors.New("miss")
}

func (c *memSpecCache) PutVehicleSpecs(ctx context.Context, year int, mk, mdl string, spec model.VehicleSpecs) error {
	c.puts++
	c.entries[c.key(year, mk, mdl)] = spec
	return nil
}

func ptr(v float64) *float64 { return &v }

func TestResolveWalksProvidersAndAcceptsPartial(t *testing.T) {
	failing := &fakeProvider{name: "a", err: integrations.ErrNoSpecs}
	partial := &fakeProvider{name: "b", spec: model.VehicleSpecs{WeightLbs: ptr(3306)}}
	r := &Resolver{Providers: []integrations.SpecsProvider{failing, partial}}

	spec := r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2020, Make: "Honda", Model: "Civic"})
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, partial.calls)
	require.NotNil(t, spec.WeightLbs)
	assert.InDelta(t, 3306, *spec.WeightLbs, 1e-9)
	// A provider that leaves Source blank gets credited by name.
	assert.Equal(t, "b", spec.Source)
}

func TestResolveSkipsEmptyProviderResults(t *testing.T) {
	empty := &fakeProvider{name: "a"} // no fields, no error
	r := &Resolver{Providers: []integrations.SpecsProvider{empty}}

	spec := r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2015, Make: "Acme", Model: "Widget"})
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, "estimate", spec.Source)
}

func TestResolveCacheHitSkipsProviders(t *testing.T) {
	cache := newMemSpecCache()
	cached := model.VehicleSpecs{HeightFt: ptr(4.64), WeightLbs: ptr(2771), Source: "carapi"}
	cache.entries[cache.key(2020, "honda", "civic")] = cached

	p := &fakeProvider{name: "carapi", spec: cached}
	r := &Resolver{Providers: []integrations.SpecsProvider{p}, Cache: cache}

	spec := r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2020, Make: " Honda ", Model: "CIVIC"})
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, "carapi", spec.Source)
}

func TestResolveWritesProviderHitsToCache(t *testing.T) {
	cache := newMemSpecCache()
	p := &fakeProvider{name: "carapi", spec: model.VehicleSpecs{HeightFt: ptr(4.64), Source: "carapi"}}
	r := &Resolver{Providers: []integrations.SpecsProvider{p}, Cache: cache}

	r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2020, Make: "Honda", Model: "Civic"})
	assert.Equal(t, 1, cache.puts)
	_, ok := cache.entries[cache.key(2020, "honda", "civic")]
	assert.True(t, ok)
}

func TestResolveTrimAndAggregateQueriesBypassCache(t *testing.T) {
	cache := newMemSpecCache()
	cache.entries[cache.key(2020, "honda", "civic")] = model.VehicleSpecs{HeightFt: ptr(9.9), Source: "carapi"}
	p := &fakeProvider{name: "carapi", spec: model.VehicleSpecs{HeightFt: ptr(4.6), Source: "carapi"}}
	r := &Resolver{Providers: []integrations.SpecsProvider{p}, Cache: cache}

	spec := r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2020, Make: "Honda", Model: "Civic", Trim: "EX"})
	assert.Equal(t, 1, p.calls)
	assert.InDelta(t, 4.6, *spec.HeightFt, 1e-9)

	r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2020, Make: "Honda", Model: "Civic", Strategy: "max"})
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, 0, cache.puts)
}

func TestResolveFallbackTable(t *testing.T) {
	failing := &fakeProvider{name: "a", err: errors.New("network down")}
	r := &Resolver{Providers: []integrations.SpecsProvider{failing}}

	spec := r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2020, Make: "HONDA", Model: " cr-v "})
	assert.Equal(t, "fallback-table", spec.Source)
	require.NotNil(t, spec.HeightFt)
	assert.InDelta(t, 5.54, *spec.HeightFt, 1e-9)
	assert.InDelta(t, 3521, *spec.WeightLbs, 1e-9)

	// Wrong year misses the table and lands on the estimate.
	spec = r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 1999, Make: "Honda", Model: "CR-V"})
	assert.Equal(t, "estimate", spec.Source)
}

func TestResolveEstimateIsNotCached(t *testing.T) {
	cache := newMemSpecCache()
	r := &Resolver{Cache: cache}

	spec := r.Resolve(context.Background(), model.VehicleSpecsRequest{Year: 2015, Make: "Acme", Model: "Widget"})
	assert.Equal(t, "estimate", spec.Source)
	assert.Equal(t, 0, cache.puts)
}

func TestResolveMissing(t *testing.T) {
	r := &Resolver{} // no providers: fallback table, then estimates

	cars := []model.RoutePlanCarIn{
		{Make: "Honda", Model: "Civic", Year: 2020, HeightFt: ptr(4.5), WeightLbs: ptr(2800)},
		{Make: "Honda", Model: "CR-V", Year: 2020, WeightLbs: ptr(3600)},
		{Make: "Acme", Model: "Widget", Year: 2015},
		{},
	}
	out, warnings := r.ResolveMissing(context.Background(), cars)
	require.Len(t, out, 4)

	// Declared values survive untouched.
	assert.InDelta(t, 4.5, *out[0].HeightFt, 1e-9)
	assert.InDelta(t, 2800, *out[0].WeightLbs, 1e-9)

	// Only the missing field is filled.
	require.NotNil(t, out[1].HeightFt)
	assert.InDelta(t, 5.54, *out[1].HeightFt, 1e-9)
	assert.InDelta(t, 3600, *out[1].WeightLbs, 1e-9)

	// Unknown vehicles land on estimates and raise a warning.
	require.NotNil(t, out[2].HeightFt)
	assert.InDelta(t, 4.8, *out[2].HeightFt, 1e-9)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Using segment estimate for 2015 Acme Widget.", warnings[0])

	// Cars with no make/model are left alone.
	assert.Nil(t, out[3].HeightFt)
	assert.Nil(t, out[3].WeightLbs)

	// The input slice is not mutated.
	assert.Nil(t, cars[1].HeightFt)
}

func TestNormName(t *testing.T) {
	assert.Equal(t, "honda", normName(" Honda "))
	assert.Equal(t, "model 3", normName("Model   3"))
	assert.Equal(t, "cr-v", normName("CR-V"))
	assert.Equal(t, "", normName("   "))
}
