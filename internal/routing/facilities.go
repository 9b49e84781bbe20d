package routing

import (
	"encoding/json"
	"os"

	"haulplan/internal/geo"
)

// Facility marks a fixed site (base, port, plant) whose access rules can
// block civilian trucks near a drop-off.
type Facility struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	RadiusM float64 `json:"radius_m"`
}

// LoadFacilities reads a facilities file: either a bare JSON array or an
// object with an "items" array. Missing or unreadable files yield nil.
func LoadFacilities(path string) []Facility {
	if path == "" {
		return nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var list []Facility
	if err := json.Unmarshal(body, &list); err == nil {
		return list
	}
	var wrapped struct {
		Items []Facility `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return wrapped.Items
	}
	return nil
}

// DetectBlockersNear lists up to ten facility names whose access radius
// overlaps the search distance around dest. Entries without coordinates are
// skipped; the radius defaults to 500 m.
func DetectBlockersNear(dest geo.Point, facilities []Facility, withinM float64) []string {
	var blockers []string
	for _, f := range facilities {
		if f.Lat == 0 && f.Lng == 0 {
			continue
		}
		radius := f.RadiusM
		if radius == 0 {
			radius = 500
		}
		name := f.Name
		if name == "" {
			name = "facility"
		}
		if geo.HaversineMeters(dest, geo.Point{Lat: f.Lat, Lng: f.Lng}) <= withinM+radius {
			blockers = append(blockers, name)
			if len(blockers) == 10 {
				break
			}
		}
	}
	return blockers
}
