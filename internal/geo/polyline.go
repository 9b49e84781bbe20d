package geo

import (
	"fmt"
	"math"
	"strings"
)

// HERE Flexible Polyline decoding.
// Format reference: https://github.com/heremaps/flexible-polyline

const polylineAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func readVarint(s string, idx int) (uint64, int, error) {
	var result uint64
	shift := uint(0)
	for {
		if idx >= len(s) {
			return 0, idx, fmt.Errorf("invalid flexible polyline: truncated varint")
		}
		v := strings.IndexByte(polylineAlphabet, s[idx])
		if v < 0 {
			return 0, idx, fmt.Errorf("invalid flexible polyline char: %q", s[idx])
		}
		idx++
		result |= uint64(v&0x1f) << shift
		if v&0x20 == 0 {
			return result, idx, nil
		}
		shift += 5
	}
}

func zigzagDecode(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1)
}

// DecodeFlexPolyline decodes a HERE flexible polyline into points. A third
// dimension, when present, is consumed and discarded. Points outside WGS84
// bounds are dropped.
func DecodeFlexPolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, nil
	}
	version, idx, err := readVarint(encoded, 0)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("unsupported flexible polyline version %d", version)
	}
	var header uint64
	header, idx, err = readVarint(encoded, idx)
	if err != nil {
		return nil, err
	}
	precision := header & 15
	thirdDim := (header >> 4) & 7
	scale := math.Pow10(int(precision))
	hasZ := thirdDim != 0

	var lat, lng int64
	var out []Point
	for idx < len(encoded) {
		var dLat, dLng uint64
		dLat, idx, err = readVarint(encoded, idx)
		if err != nil {
			return nil, err
		}
		dLng, idx, err = readVarint(encoded, idx)
		if err != nil {
			return nil, err
		}
		lat += zigzagDecode(dLat)
		lng += zigzagDecode(dLng)
		if hasZ {
			_, idx, err = readVarint(encoded, idx)
			if err != nil {
				return nil, err
			}
		}
		p := Point{Lat: float64(lat) / scale, Lng: float64(lng) / scale}
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out, nil
}
