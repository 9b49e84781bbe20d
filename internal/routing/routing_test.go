package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haulplan/internal/geo"
)

// Canonical flexible polyline sample decoding to four points near Frankfurt.
const testPolyline = "BFoz5xJ67i1B1B7PzIhaxL7Y"

func place(lat, lng float64) map[string]any {
	return map[string]any{"place": map[string]any{"location": map[string]any{"lat": lat, "lng": lng}}}
}

// routeBody builds a minimal successful HERE response whose departure and
// arrival agree with the embedded polyline.
func routeBody(notices ...map[string]any) map[string]any {
	sec := map[string]any{
		"summary":   map[string]any{"duration": 1800.0, "length": 42000.0},
		"polyline":  testPolyline,
		"departure": place(50.10228, 8.69821),
		"arrival":   place(50.09878, 8.68752),
	}
	if len(notices) > 0 {
		ns := make([]any, 0, len(notices))
		for _, n := range notices {
			ns = append(ns, n)
		}
		sec["notices"] = ns
	}
	return map[string]any{"routes": []any{map[string]any{"sections": []any{sec}}}}
}

// fakeRouter stands in for the HERE v8 endpoint and records every query.
func fakeRouter(t *testing.T, handler func(q url.Values) (int, any)) (*Client, *[]url.Values) {
	t.Helper()
	var seen []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		seen = append(seen, q)
		status, body := handler(q)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return &Client{APIKey: "test-key", BaseURL: srv.URL, HTTP: srv.Client()}, &seen
}

func TestVehicleParams(t *testing.T) {
	p := vehicleParams(PlanRequest{
		HeightM:               4.1148,
		WeightKg:              36287.4,
		LengthM:               22.86,
		WidthM:                2.5908,
		WeightPerAxleKg:       5443.1,
		ShippedHazardousGoods: "explosive",
		TunnelCategory:        "C",
	})
	assert.Equal(t, "truck", p.Get("transportMode"))
	assert.Equal(t, "fast", p.Get("routingMode"))
	assert.Equal(t, "summary,polyline,actions,notices", p.Get("return"))
	assert.Equal(t, "notices", p.Get("spans"))
	assert.Equal(t, "411", p.Get("vehicle[height]"))
	assert.Equal(t, "259", p.Get("vehicle[width]"))
	assert.Equal(t, "2286", p.Get("vehicle[length]"))
	assert.Equal(t, "36287", p.Get("vehicle[grossWeight]"))
	assert.Equal(t, "5443", p.Get("vehicle[weightPerAxle]"))
	assert.Equal(t, "explosive", p.Get("vehicle[shippedHazardousGoods]"))
	assert.Equal(t, "C", p.Get("vehicle[tunnelCategory]"))
	assert.Equal(t, "difficultTurns", p.Get("avoid[features]"))

	minimal := vehicleParams(PlanRequest{HeightM: 4.0})
	_, hasWidth := minimal["vehicle[width]"]
	assert.False(t, hasWidth)
	_, hasHazmat := minimal["vehicle[shippedHazardousGoods]"]
	assert.False(t, hasHazmat)
}

func TestCallRouteRetriesLegacyReturn(t *testing.T) {
	calls := 0
	c, seen := fakeRouter(t, func(url.Values) (int, any) {
		calls++
		if calls == 1 {
			return 400, map[string]any{"cause": "Invalid value for parameter 'spans'"}
		}
		return 200, routeBody()
	})

	att := c.callRoute(context.Background(),
		geo.Point{Lat: 50.11, Lng: 8.68}, geo.Point{Lat: 50.1, Lng: 8.69},
		vehicleParams(PlanRequest{HeightM: 4.0}), nil)

	require.True(t, att.OK)
	assert.Equal(t, 200, att.Status)
	require.Len(t, *seen, 2)
	assert.Equal(t, "notices", (*seen)[0].Get("spans"))
	_, hasSpans := (*seen)[1]["spans"]
	assert.False(t, hasSpans, "retry must drop the spans parameter")
	assert.Equal(t, "summary,polyline,actions", (*seen)[1].Get("return"))
	assert.Equal(t, (*seen)[0].Get("origin"), (*seen)[1].Get("origin"))
}

func TestPlanPrimary(t *testing.T) {
	c, seen := fakeRouter(t, func(url.Values) (int, any) { return 200, routeBody() })

	res := c.PlanWithHeightAnalysis(context.Background(), PlanRequest{
		Start:         geo.Point{Lat: 50.11, Lng: 8.68},
		End:           geo.Point{Lat: 50.1, Lng: 8.69},
		HeightM:       4.0,
		WeightKg:      30000,
		TotalHeightFt: 13.1,
	})

	require.NotNil(t, res.PrimarySummary)
	assert.True(t, res.PrimarySummary.OK)
	require.NotNil(t, res.PrimarySummary.Duration)
	assert.Equal(t, 1800.0, *res.PrimarySummary.Duration)
	require.NotNil(t, res.PrimarySummary.Length)
	assert.Equal(t, 42000.0, *res.PrimarySummary.Length)
	assert.Equal(t, "truck", res.PrimarySummary.Mode)

	want, err := geo.DecodeFlexPolyline(testPolyline)
	require.NoError(t, err)
	require.Len(t, res.PrimaryPath, len(want))
	for i, p := range want {
		assert.Equal(t, p.Lat, res.PrimaryPath[i][0])
		assert.Equal(t, p.Lng, res.PrimaryPath[i][1])
	}

	assert.True(t, res.Legal.Primary)
	assert.True(t, res.Legal.Alternative)
	assert.False(t, res.Legal.Fallback)
	assert.False(t, res.FallbackUsed)
	assert.False(t, res.ChosenIsAlternative)
	assert.Equal(t, "", res.ChoseReason)
	assert.Empty(t, res.Warnings)
	assert.NotNil(t, res.PrimaryRoute["routes"])
	assert.NotNil(t, res.AlternativeRoute)
	require.NotNil(t, res.AlternativeSummary)
	assert.True(t, res.AlternativeSummary.OK)

	// primary plus the unbiased alternative
	require.Len(t, *seen, 2)
	assert.Equal(t, "", (*seen)[1].Get("via"))
}

func TestPlanOverheightNYCBiasesViaGWB(t *testing.T) {
	c, seen := fakeRouter(t, func(url.Values) (int, any) { return 200, routeBody() })

	res := c.PlanWithHeightAnalysis(context.Background(), PlanRequest{
		Start:         geo.Point{Lat: 39.29, Lng: -76.61},
		End:           geo.Point{Lat: 40.75, Lng: -73.98},
		HeightM:       4.19,
		WeightKg:      36000,
		TotalHeightFt: 13.75,
	})

	require.Len(t, *seen, 2)
	assert.Equal(t, "", (*seen)[0].Get("via"))
	assert.Equal(t, "40.85177,-73.95272", (*seen)[1].Get("via"))
	assert.True(t, res.ChosenIsAlternative)
	assert.Equal(t, "Over height or local restriction risk; using tunnel-free biased alternative.", res.ChoseReason)
	assert.Contains(t, res.Warnings, `Total height 13.75 ft exceeds common US interstate guideline (13'6").`)
}

func TestPlanFallbackStaging(t *testing.T) {
	end := geo.Point{Lat: 38.9, Lng: -77.03}
	exact := end.String()
	c, seen := fakeRouter(t, func(q url.Values) (int, any) {
		if q.Get("destination") == exact {
			return 400, map[string]any{"title": "No route found"}
		}
		return 200, routeBody()
	})

	res := c.PlanWithHeightAnalysis(context.Background(), PlanRequest{
		Start:         geo.Point{Lat: 39.29, Lng: -76.61},
		End:           end,
		HeightM:       4.0,
		WeightKg:      30000,
		TotalHeightFt: 13.0,
	})

	assert.True(t, res.FallbackUsed)
	assert.True(t, res.Fallback.Used)
	require.NotNil(t, res.Fallback.Dest)
	require.NotNil(t, res.Fallback.RemainingM)
	assert.InDelta(t, 500, *res.Fallback.RemainingM, 1.0)
	require.NotNil(t, res.Fallback.Summary)
	assert.True(t, res.Fallback.Summary.OK)
	assert.True(t, res.Legal.Fallback)
	assert.False(t, res.Legal.Primary)
	assert.False(t, res.Legal.Alternative)
	assert.False(t, res.ChosenIsAlternative)
	assert.Equal(t, "Exact drop-off unreachable; using nearest reachable staging point.", res.ChoseReason)
	assert.Contains(t, res.Warnings,
		"Cannot find legal truck route to exact drop-off. Suggested staging point nearby; proceed last segment with caution/per local guidance.")
	assert.Equal(t, false, res.PrimaryRoute["ok"])
	assert.Equal(t, 400, res.PrimaryRoute["status"])

	// two exact attempts, then the whole first ring before the early break
	assert.Len(t, *seen, 10)
}

func TestPlanForceFallbackWhenBothCritical(t *testing.T) {
	end := geo.Point{Lat: 38.9, Lng: -77.03}
	exact := end.String()
	critical := routeBody(map[string]any{"title": `Low clearance 12'6"`, "category": "violation"})
	c, seen := fakeRouter(t, func(q url.Values) (int, any) {
		if q.Get("destination") == exact {
			return 200, critical
		}
		return 200, routeBody()
	})

	res := c.PlanWithHeightAnalysis(context.Background(), PlanRequest{
		Start:         geo.Point{Lat: 39.29, Lng: -76.61},
		End:           end,
		HeightM:       4.0,
		WeightKg:      30000,
		TotalHeightFt: 13.0,
	})

	assert.True(t, res.FallbackUsed)
	assert.Contains(t, res.Warnings,
		"Both primary and alternative include critical truck restrictions; suggesting the nearest reachable staging point.")
	assert.Contains(t, res.RouteNotices.Primary, `Low clearance 12'6" (violation)`)
	assert.Contains(t, res.Warnings, `Primary notice: Low clearance 12'6" (violation)`)
	assert.False(t, res.Legal.Primary)
	assert.False(t, res.Legal.Alternative)
	assert.True(t, res.Legal.Fallback)
	assert.False(t, res.ChosenIsAlternative, "not overheight, banner stays on primary")
	assert.Equal(t, "", res.ChoseReason)
	assert.Len(t, *seen, 10)
}

func TestPlanMissingAPIKey(t *testing.T) {
	c := &Client{BaseURL: "http://unused.invalid", HTTP: http.DefaultClient}

	res := c.PlanWithHeightAnalysis(context.Background(), PlanRequest{})

	require.NotNil(t, res.PrimarySummary)
	assert.False(t, res.PrimarySummary.OK)
	assert.Equal(t, 401, res.PrimarySummary.Status)
	assert.Equal(t, "Missing HERE_API_KEY", res.PrimarySummary.Error)
	assert.Equal(t, []string{"Routing disabled: HERE_API_KEY missing."}, res.Warnings)
}

func TestCollectNoticesDedupes(t *testing.T) {
	raw := map[string]any{"routes": []any{map[string]any{
		"notices": []any{map[string]any{"title": "Route blocked", "category": "violation"}},
		"sections": []any{map[string]any{
			"notices": []any{
				map[string]any{"title": "Route blocked", "category": "violation"},
				map[string]any{"title": "Tunnel restriction (critical)", "category": "critical"},
			},
			"spans": []any{map[string]any{"notices": []any{map[string]any{"message": "Axle load limit"}}}},
		}},
	}}}

	got := collectNotices(raw)
	assert.Equal(t, []string{
		"Route blocked (violation)",
		"Tunnel restriction (critical)",
		"Axle load limit",
	}, got)
}

func TestHasCritical(t *testing.T) {
	assert.True(t, hasCritical([]string{"Low clearance ahead"}))
	assert.True(t, hasCritical([]string{"Gross weight restriction (violation)"}))
	assert.False(t, hasCritical([]string{"Toll booth ahead"}))
	assert.False(t, hasCritical(nil))
}

func TestLoadFacilitiesAndDetectBlockers(t *testing.T) {
	dir := t.TempDir()

	listPath := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(listPath, []byte(
		`[{"name":"Aberdeen Proving Ground","lat":39.466,"lng":-76.13,"radius_m":8000},
		  {"name":"Far Depot","lat":45.0,"lng":-90.0},
		  {"name":"No Coords","radius_m":100}]`), 0o644))
	fl := LoadFacilities(listPath)
	require.Len(t, fl, 3)

	wrappedPath := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrappedPath, []byte(
		`{"items":[{"name":"Port","lat":39.26,"lng":-76.55}]}`), 0o644))
	assert.Len(t, LoadFacilities(wrappedPath), 1)

	assert.Nil(t, LoadFacilities(""))
	assert.Nil(t, LoadFacilities(filepath.Join(dir, "missing.json")))

	dest := geo.Point{Lat: 39.43, Lng: -76.12}
	assert.Equal(t, []string{"Aberdeen Proving Ground"}, DetectBlockersNear(dest, fl, 6000))
	assert.Empty(t, DetectBlockersNear(geo.Point{Lat: 30.0, Lng: -90.0}, fl, 6000))
}

func TestExtractSummaryAndPathEndpointFallback(t *testing.T) {
	// polyline decodes near Frankfurt but the endpoints sit in Baltimore, so
	// the decoded path fails the same-area check and collapses to [dep, arr]
	raw := map[string]any{"routes": []any{map[string]any{"sections": []any{map[string]any{
		"summary":   map[string]any{"duration": 600.0, "length": 9000.0},
		"polyline":  testPolyline,
		"departure": place(39.29, -76.61),
		"arrival":   place(39.31, -76.58),
	}}}}}
	summ, path := extractSummaryAndPath(raw)
	assert.True(t, summ.OK)
	require.Len(t, path, 2)
	assert.Equal(t, geo.Point{Lat: 39.29, Lng: -76.61}, path[0])
	assert.Equal(t, geo.Point{Lat: 39.31, Lng: -76.58}, path[1])

	// no polyline and no places: endpoints come from the bbox corners
	raw2 := map[string]any{"routes": []any{map[string]any{
		"bbox":     []any{38.9, -77.05, 39.0, -76.9},
		"sections": []any{map[string]any{"summary": map[string]any{"duration": 60.0, "length": 100.0}}},
	}}}
	summ2, path2 := extractSummaryAndPath(raw2)
	assert.True(t, summ2.OK)
	require.Len(t, path2, 2)
	assert.Equal(t, geo.Point{Lat: 38.9, Lng: -77.05}, path2[0])
	assert.Equal(t, geo.Point{Lat: 39.0, Lng: -76.9}, path2[1])

	summ3, path3 := extractSummaryAndPath(map[string]any{})
	assert.False(t, summ3.OK)
	assert.Nil(t, path3)
}
