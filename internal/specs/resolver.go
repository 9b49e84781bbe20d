// Package specs resolves vehicle dimensions for placement and route
// planning. Lookups walk a chain of catalog providers and always terminate
// in a segment estimate, so a resolution never fails outright.
package specs

import (
	"context"
	"fmt"
	"strings"

	"haulplan/internal/integrations"
	"haulplan/internal/model"
)

// Cache stores resolved specs keyed by year/make/model. The resolver
// normalizes make and model before calling it, so implementations can treat
// the strings as opaque key parts.
type Cache interface {
	GetVehicleSpecs(ctx context.Context, year int, mk, mdl string) (model.VehicleSpecs, error)
	PutVehicleSpecs(ctx context.Context, year int, mk, mdl string, spec model.VehicleSpecs) error
}

// Resolver chains providers in order, falling back to the built-in table and
// finally the segment heuristic.
type Resolver struct {
	Providers []integrations.SpecsProvider
	Cache     Cache
}

// Resolve finds specs for a request. Only trim-less first-strategy lookups
// go through the cache; trim or aggregate queries would poison the default
// entry. Estimates and the built-in table are never written back.
func (r *Resolver) Resolve(ctx context.Context, req model.VehicleSpecsRequest) model.VehicleSpecs {
	mk, mdl := normName(req.Make), normName(req.Model)
	cacheable := req.Trim == "" && (req.Strategy == "" || strings.EqualFold(req.Strategy, "first"))
	if cacheable && r.Cache != nil {
		if spec, err := r.Cache.GetVehicleSpecs(ctx, req.Year, mk, mdl); err == nil {
			return spec
		}
	}

	q := integrations.SpecsQuery{
		Year:     req.Year,
		Make:     req.Make,
		Model:    req.Model,
		Trim:     req.Trim,
		Strategy: req.Strategy,
	}
	for _, p := range r.Providers {
		spec, err := p.LookupSpecs(ctx, q)
		if err != nil {
			continue
		}
		if spec.HeightFt == nil && spec.WeightLbs == nil {
			continue
		}
		if spec.Source == "" {
			spec.Source = p.Name()
		}
		if cacheable && r.Cache != nil {
			_ = r.Cache.PutVehicleSpecs(ctx, req.Year, mk, mdl, spec)
		}
		return spec
	}

	if spec, ok := fallbackSpec(req.Year, req.Make, req.Model); ok {
		return spec
	}
	return EstimateSpecs(req.Year, req.Make, req.Model)
}

// ResolveMissing fills height and weight on cars that did not declare them.
// User-provided values are never touched. A warning is raised whenever a car
// ends up on a segment estimate.
func (r *Resolver) ResolveMissing(ctx context.Context, cars []model.RoutePlanCarIn) ([]model.RoutePlanCarIn, []string) {
	out := append([]model.RoutePlanCarIn(nil), cars...)
	var warnings []string
	for i := range out {
		car := &out[i]
		if car.HeightFt != nil && car.WeightLbs != nil {
			continue
		}
		if car.Make == "" && car.Model == "" {
			continue
		}
		spec := r.Resolve(ctx, model.VehicleSpecsRequest{Year: car.Year, Make: car.Make, Model: car.Model})
		if car.HeightFt == nil && spec.HeightFt != nil {
			car.HeightFt = spec.HeightFt
		}
		if car.WeightLbs == nil && spec.WeightLbs != nil {
			car.WeightLbs = spec.WeightLbs
		}
		if spec.Source == "estimate" {
			warnings = append(warnings, fmt.Sprintf("Using segment estimate for %d %s %s.", car.Year, car.Make, car.Model))
		}
	}
	return out, warnings
}

// Built-in specs for common models, conservative where ranges exist.

type fallbackKey struct {
	Make  string
	Model string
	Year  int
}

var fallbackTable = map[fallbackKey][2]float64{
	{"honda", "civic", 2020}:    {4.64, 2771},
	{"toyota", "camry", 2018}:   {4.74, 3340},
	{"tesla", "model 3", 2020}:  {4.73, 4032},
	{"honda", "cr-v", 2020}:     {5.54, 3521},
	{"toyota", "rav4", 2020}:    {5.58, 3490},
	{"ford", "f-150", 2021}:     {6.43, 4705},
	{"chevrolet", "tahoe", 2020}: {6.20, 5602},
	{"ford", "explorer", 2020}:  {5.83, 4345},
	{"subaru", "outback", 2019}: {5.54, 3686},
}

func fallbackSpec(year int, mk, mdl string) (model.VehicleSpecs, bool) {
	v, ok := fallbackTable[fallbackKey{normName(mk), normName(mdl), year}]
	if !ok {
		return model.VehicleSpecs{}, false
	}
	h, w := v[0], v[1]
	return model.VehicleSpecs{HeightFt: &h, WeightLbs: &w, Source: "fallback-table"}, true
}

// normName lowercases and collapses runs of whitespace.
func normName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
