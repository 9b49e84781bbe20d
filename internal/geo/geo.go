package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

const earthRadiusM = 6371000.0

// FeetToMeters converts feet to meters.
func FeetToMeters(ft float64) float64 { return ft * 0.3048 }

// PoundsToKg converts pounds to kilograms.
func PoundsToKg(lb float64) float64 { return lb * 0.45359237 }

// HaversineMeters returns the great-circle distance between two points in meters.
func HaversineMeters(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusM * c
}

// OffsetPoint projects p by distanceM meters along bearingDeg (0 = north, clockwise).
func OffsetPoint(p Point, distanceM, bearingDeg float64) Point {
	br := bearingDeg * math.Pi / 180
	lat1 := p.Lat * math.Pi / 180
	lng1 := p.Lng * math.Pi / 180
	ad := distanceM / earthRadiusM
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ad) + math.Cos(lat1)*math.Sin(ad)*math.Cos(br))
	lng2 := lng1 + math.Atan2(math.Sin(br)*math.Sin(ad)*math.Cos(lat1), math.Cos(ad)-math.Sin(lat1)*math.Sin(lat2))
	return Point{Lat: lat2 * 180 / math.Pi, Lng: lng2 * 180 / math.Pi}
}

// ParseLatLng parses a "lat,lng" string into a Point.
func ParseLatLng(s string) (Point, error) {
	part := strings.SplitN(s, ",", 2)
	if len(part) != 2 {
		return Point{}, fmt.Errorf("bad coordinate string: %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(part[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("bad latitude in %q: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(part[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("bad longitude in %q: %w", s, err)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// Valid reports whether p lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90.0 && p.Lat <= 90.0 && p.Lng >= -180.0 && p.Lng <= 180.0
}

// String renders p as "lat,lng" the way routing APIs expect it.
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
