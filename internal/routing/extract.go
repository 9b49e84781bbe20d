package routing

import (
	"fmt"
	"math"
	"strings"

	"haulplan/internal/geo"
)

// Keyword scan used to label HERE notices as critical truck restrictions.
var criticalKeywords = []string{
	"violation", "forbidden", "prohibit", "no truck", "no trucks",
	"low bridge", "low clearance", "clearance", "height", "overheight",
	"weight", "gross weight", "gvm", "axle", "tunnel", "hazardous",
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func firstRoute(raw map[string]any) map[string]any {
	routes := asSlice(raw["routes"])
	if len(routes) == 0 {
		return nil
	}
	return asMap(routes[0])
}

// polylineFromRoute pulls a polyline string from the first section carrying
// one, falling back to the route level. The returned section is nil for a
// route-level polyline.
func polylineFromRoute(raw map[string]any) (string, map[string]any) {
	route := firstRoute(raw)
	if route == nil {
		return "", nil
	}
	for _, v := range asSlice(route["sections"]) {
		sec := asMap(v)
		if s, ok := sec["polyline"].(string); ok {
			return s, sec
		}
	}
	if s, ok := route["polyline"].(string); ok {
		return s, nil
	}
	return "", nil
}

func placeLocation(sec map[string]any, key string) geo.Point {
	loc := asMap(asMap(asMap(sec[key])["place"])["location"])
	lat, ok1 := loc["lat"].(float64)
	lng, ok2 := loc["lng"].(float64)
	if !ok1 || !ok2 {
		return geo.Point{}
	}
	return geo.Point{Lat: lat, Lng: lng}
}

func nonZero(p geo.Point) bool {
	return math.Abs(p.Lat) > 0 && math.Abs(p.Lng) > 0
}

// sameArea treats points within 50 km as belonging to the same area.
func sameArea(a, b geo.Point) bool {
	return geo.HaversineMeters(a, b) < 50000.0
}

// extractEndpoints reads (departure, arrival) from the section when both are
// present and nonzero, else approximates them from the route bbox corners.
func extractEndpoints(sec, raw map[string]any) (geo.Point, geo.Point) {
	if sec != nil {
		dep := placeLocation(sec, "departure")
		arr := placeLocation(sec, "arrival")
		if nonZero(dep) && nonZero(arr) {
			return dep, arr
		}
	}
	if route := firstRoute(raw); route != nil {
		if bbox := asSlice(route["bbox"]); len(bbox) == 4 {
			south, ok1 := bbox[0].(float64)
			west, ok2 := bbox[1].(float64)
			north, ok3 := bbox[2].(float64)
			east, ok4 := bbox[3].(float64)
			if ok1 && ok2 && ok3 && ok4 {
				return geo.Point{Lat: south, Lng: west}, geo.Point{Lat: north, Lng: east}
			}
		}
	}
	return geo.Point{}, geo.Point{}
}

// extractSummaryAndPath reads the first section summary and decodes a path
// suitable for mapping. A decoded polyline that is missing or does not start
// and end near the route endpoints is replaced by the straight [dep, arr]
// segment.
func extractSummaryAndPath(raw map[string]any) (*Summary, []geo.Point) {
	route := firstRoute(raw)
	if route == nil {
		return &Summary{}, nil
	}
	secsVal, hasSecs := route["sections"]
	secs := asSlice(secsVal)
	if hasSecs && len(secs) == 0 {
		return &Summary{}, nil
	}
	sec0 := map[string]any{}
	if len(secs) > 0 {
		sec0 = asMap(secs[0])
	}

	summ := &Summary{OK: true, Mode: "truck"}
	if s := asMap(sec0["summary"]); s != nil {
		if d, ok := s["duration"].(float64); ok {
			summ.Duration = &d
		}
		if l, ok := s["length"].(float64); ok {
			summ.Length = &l
		}
	}

	polyStr, secPoly := polylineFromRoute(raw)
	epSec := secPoly
	if epSec == nil {
		epSec = sec0
	}
	dep, arr := extractEndpoints(epSec, raw)

	var path []geo.Point
	if polyStr != "" {
		if pts, err := geo.DecodeFlexPolyline(polyStr); err == nil {
			path = pts
		}
	}
	if len(path) == 0 || !sameArea(path[0], dep) || !sameArea(path[len(path)-1], arr) {
		if nonZero(dep) && nonZero(arr) {
			path = []geo.Point{dep, arr}
		} else {
			path = nil
		}
	}
	return summ, path
}

// noticeTitle renders one HERE notice as a short human-readable string,
// appending the category when the title does not already carry it.
func noticeTitle(n map[string]any) string {
	title := ""
	for _, key := range []string{"title", "message", "code"} {
		if s, ok := n[key].(string); ok && s != "" {
			title = s
			break
		}
	}
	if title == "" {
		title = "Notice"
	}
	cat, _ := n["category"].(string)
	if cat == "" {
		cat, _ = n["type"].(string)
	}
	if cat != "" && !strings.Contains(title, cat) {
		title = fmt.Sprintf("%s (%s)", title, cat)
	}
	return title
}

// collectNotices gathers restriction notices from the route, its sections,
// and span annotations, de-duplicated in first-seen order.
func collectNotices(raw map[string]any) []string {
	var msgs []string
	add := func(v any) {
		n := asMap(v)
		if n == nil {
			return
		}
		title := noticeTitle(n)
		for _, m := range msgs {
			if m == title {
				return
			}
		}
		msgs = append(msgs, title)
	}

	route := firstRoute(raw)
	if route == nil {
		return msgs
	}
	for _, v := range asSlice(route["notices"]) {
		add(v)
	}
	for _, sv := range asSlice(route["sections"]) {
		sec := asMap(sv)
		for _, v := range asSlice(sec["notices"]) {
			add(v)
		}
		for _, spv := range asSlice(sec["spans"]) {
			for _, v := range asSlice(asMap(spv)["notices"]) {
				add(v)
			}
		}
	}
	return msgs
}

// hasCritical reports whether any notice text suggests the route is illegal
// or physically restricted for the truck.
func hasCritical(notices []string) bool {
	if len(notices) == 0 {
		return false
	}
	low := strings.ToLower(strings.Join(notices, " "))
	for _, k := range criticalKeywords {
		if strings.Contains(low, k) {
			return true
		}
	}
	return false
}
