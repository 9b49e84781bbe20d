package specs

import (
	"context"
	"sort"
	"strings"

	"haulplan/internal/integrations/carapi"
	"haulplan/internal/integrations/vpic"
)

// Static tables give the options endpoints an instant answer when the
// catalog providers are down or unconfigured.

var StaticMakes = []string{
	"Acura", "Alfa Romeo", "Audi", "BMW", "Buick", "Cadillac", "Chevrolet", "Chrysler",
	"Dodge", "Fiat", "Ford", "Genesis", "GMC", "Honda", "Hyundai", "Infiniti", "Jaguar",
	"Jeep", "Kia", "Land Rover", "Lexus", "Lincoln", "Mazda", "Mercedes-Benz", "Mini",
	"Mitsubishi", "Nissan", "Porsche", "Ram", "Subaru", "Tesla", "Toyota", "Volkswagen",
	"Volvo", "Rivian", "Polestar",
}

var PopularModelsByMake = map[string][]string{
	"Toyota":        {"Camry", "Corolla", "RAV4", "Highlander", "Tacoma", "Tundra", "Prius", "Sienna", "4Runner"},
	"Honda":         {"Civic", "Accord", "CR-V", "Pilot", "Odyssey", "HR-V", "Ridgeline", "Passport"},
	"Ford":          {"F-150", "F-250", "F-350", "Explorer", "Escape", "Edge", "Expedition", "Mustang", "Ranger", "Bronco", "Maverick"},
	"Chevrolet":     {"Silverado 1500", "Silverado 2500HD", "Silverado 3500HD", "Tahoe", "Suburban", "Traverse", "Equinox", "Colorado", "Malibu", "Camaro", "Blazer"},
	"Tesla":         {"Model 3", "Model Y", "Model S", "Model X", "Cybertruck"},
	"Subaru":        {"Outback", "Forester", "Crosstrek", "Impreza", "Ascent", "Legacy"},
	"Nissan":        {"Altima", "Sentra", "Rogue", "Murano", "Pathfinder", "Frontier", "Versa", "Maxima"},
	"GMC":           {"Sierra 1500", "Sierra 2500HD", "Sierra 3500HD", "Yukon", "Acadia", "Terrain", "Canyon"},
	"Ram":           {"1500", "2500", "3500", "ProMaster"},
	"Dodge":         {"Durango", "Charger", "Challenger", "Hornet", "Journey"},
	"Jeep":          {"Wrangler", "Grand Cherokee", "Cherokee", "Compass", "Renegade", "Gladiator", "Wagoneer"},
	"Volkswagen":    {"Jetta", "Golf", "Tiguan", "Atlas", "Taos", "ID.4", "Passat"},
	"Hyundai":       {"Elantra", "Sonata", "Tucson", "Santa Fe", "Palisade", "Kona", "Venue", "Ioniq 5"},
	"Kia":           {"Forte", "K5", "Soul", "Sportage", "Sorento", "Telluride", "Seltos", "Niro"},
	"Mazda":         {"Mazda3", "Mazda6", "CX-30", "CX-5", "CX-50", "CX-9"},
	"Lexus":         {"RX", "NX", "ES", "IS", "GX", "LX", "UX"},
	"Acura":         {"Integra", "ILX", "TLX", "RDX", "MDX"},
	"BMW":           {"3 Series", "5 Series", "7 Series", "X1", "X3", "X5", "X7", "M3", "M4", "i4", "iX"},
	"Mercedes-Benz": {"C-Class", "E-Class", "S-Class", "GLA", "GLC", "GLE", "GLS", "G-Class", "EQE", "EQS"},
	"Audi":          {"A3", "A4", "A6", "Q3", "Q5", "Q7", "Q8", "e-tron"},
	"Volvo":         {"S60", "S90", "V60", "XC40", "XC60", "XC90", "EX30", "EX90"},
	"Porsche":       {"Macan", "Cayenne", "Panamera", "911", "Taycan"},
	"Cadillac":      {"Escalade", "XT4", "XT5", "XT6", "CT4", "CT5", "Lyriq"},
	"Buick":         {"Encore", "Envista", "Envision", "Enclave"},
	"Chrysler":      {"Pacifica", "Voyager", "300"},
	"Lincoln":       {"Navigator", "Aviator", "Nautilus", "Corsair"},
	"Mitsubishi":    {"Outlander", "Outlander Sport", "Eclipse Cross", "Mirage"},
	"Infiniti":      {"Q50", "Q60", "QX50", "QX60", "QX80"},
	"Genesis":       {"G70", "G80", "G90", "GV70", "GV80"},
	"Jaguar":        {"F-Pace", "E-Pace", "I-Pace", "XE", "XF"},
	"Land Rover":    {"Range Rover", "Range Rover Sport", "Range Rover Velar", "Discovery", "Defender"},
	"Mini":          {"Cooper", "Clubman", "Countryman"},
	"Rivian":        {"R1T", "R1S"},
	"Polestar":      {"2", "3"},
}

// canonName flattens a make or model for comparison: "CR-V", "crv" and
// "CR V" all compare equal.
func canonName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.TrimSpace(s)
}

// Makes returns the static make list sorted case-insensitively.
func Makes() []string {
	out := append([]string(nil), StaticMakes...)
	sortCaseInsensitive(out)
	return out
}

// OptionsSource serves make/model autocomplete. Either client may be nil;
// rungs that cannot run are skipped.
type OptionsSource struct {
	CarAPI *carapi.Client
	VPIC   *vpic.Client
}

// Models lists model names for a make: CarAPI body rows filtered locally by
// make, then vPIC models for the year, then the static table. The result is
// never nil.
func (o OptionsSource) Models(ctx context.Context, mk string, year int) []string {
	want := canonName(mk)
	if o.CarAPI != nil {
		if rows, err := o.CarAPI.ListBodies(ctx, year); err == nil {
			seen := map[string]bool{}
			var out []string
			for _, r := range rows {
				if canonName(rowMake(r)) != want {
					continue
				}
				mdl := rowModel(r)
				if mdl == "" || seen[canonName(mdl)] {
					continue
				}
				seen[canonName(mdl)] = true
				out = append(out, mdl)
			}
			if len(out) > 0 {
				sortCaseInsensitive(out)
				return out
			}
		}
	}
	if o.VPIC != nil && year > 0 {
		if rows, err := o.VPIC.SearchModels(ctx, year, mk); err == nil {
			seen := map[string]bool{}
			var out []string
			for _, r := range rows {
				mdl := strings.TrimSpace(r.ModelName)
				if mdl == "" || seen[canonName(mdl)] {
					continue
				}
				seen[canonName(mdl)] = true
				out = append(out, mdl)
			}
			if len(out) > 0 {
				sortCaseInsensitive(out)
				return out
			}
		}
	}
	out := append([]string{}, PopularModelsByMake[mk]...)
	sortCaseInsensitive(out)
	return out
}

// rowMake pulls a make name from a catalog row; some payloads nest it under
// an object.
func rowMake(r map[string]any) string {
	for _, k := range []string{"make", "make_name", "manufacturer"} {
		if v, ok := r[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if m, ok := r["make"].(map[string]any); ok {
		for _, k := range []string{"name", "make", "manufacturer"} {
			if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func rowModel(r map[string]any) string {
	for _, k := range []string{"model", "model_name", "series"} {
		if v, ok := r[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if m, ok := r["model"].(map[string]any); ok {
		for _, k := range []string{"name", "model"} {
			if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func sortCaseInsensitive(ss []string) {
	sort.SliceStable(ss, func(i, j int) bool {
		return strings.ToLower(ss[i]) < strings.ToLower(ss[j])
	})
}
