package routing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"haulplan/internal/geo"
)

// Staging search pattern around an unreachable drop-off.
var (
	fallbackRingsM   = []float64{500, 1500, 3000, 5000, 8000}
	fallbackBearings = []float64{0, 45, 90, 135, 180, 225, 270, 315}
)

// PlanWithHeightAnalysis routes start→end with the truck profile applied and
// analyzes the outcome:
//
//   - primary: the direct route to the exact drop-off
//   - alternative: same destination, biased over the GWB upper deck when the
//     load is overheight and the drop-off looks like the NYC area
//   - fallback: nearest reachable staging point, attempted when both direct
//     routes fail or both carry critical restriction notices
//
// The result always comes back; failures surface as !ok summaries and
// warnings rather than errors.
func (c *Client) PlanWithHeightAnalysis(ctx context.Context, req PlanRequest) Result {
	if c.APIKey == "" {
		return Result{
			PrimarySummary: &Summary{Status: 401, Error: "Missing HERE_API_KEY"},
			PrimaryPath:    [][2]float64{},
			Warnings:       []string{"Routing disabled: HERE_API_KEY missing."},
			Fallback:       Fallback{Blockers: []string{}, Path: [][2]float64{}},
			RouteNotices:   RouteNotices{Primary: []string{}, Alternative: []string{}, Fallback: []string{}},
		}
	}

	var warnings []string
	facilities := LoadFacilities(req.FacilitiesFile)
	vparams := vehicleParams(req)

	primary := c.callRoute(ctx, req.Start, req.End, vparams, nil)
	primarySummary := &Summary{}
	var primaryPath []geo.Point
	var primaryNotices []string
	primaryCritical := false
	if primary.OK {
		primarySummary, primaryPath = extractSummaryAndPath(primary.Raw)
		primaryNotices = collectNotices(primary.Raw)
		primaryCritical = hasCritical(primaryNotices)
	}

	nycLike := math.Abs(req.End.Lat-40.75) < 0.5 && math.Abs(req.End.Lng-(-73.98)) < 0.7
	var viaHint *geo.Point
	if req.TotalHeightFt > 13.5 && nycLike {
		v := GWBUpper
		viaHint = &v
	}

	alt := c.callRoute(ctx, req.Start, req.End, vparams, viaHint)
	var altSummary *Summary
	var altPath []geo.Point
	var altNotices []string
	altCritical := false
	if alt.OK {
		altSummary, altPath = extractSummaryAndPath(alt.Raw)
		altNotices = collectNotices(alt.Raw)
		altCritical = hasCritical(altNotices)
	}

	forceFallback := primary.OK && primaryCritical && alt.OK && altCritical

	fallbackUsed := false
	var fallbackDest *geo.Point
	var fallbackSummary *Summary
	var fallbackPath []geo.Point
	var fallbackRemaining *float64
	var fallbackNotices []string
	var blockers []string

	if (!primary.OK && !alt.OK) || forceFallback {
		cand := c.findReachableNearDest(ctx, req.Start, req.End, vparams, fallbackRingsM, fallbackBearings)
		if cand != nil {
			fallbackUsed = true
			dest := cand.Dest
			fallbackDest = &dest
			fallbackSummary, fallbackPath = extractSummaryAndPath(cand.Raw)
			fallbackNotices = collectNotices(cand.Raw)
			rem := geo.HaversineMeters(dest, req.End)
			fallbackRemaining = &rem
			blockers = DetectBlockersNear(req.End, facilities, 6000)
			if forceFallback {
				warnings = append(warnings,
					"Both primary and alternative include critical truck restrictions; suggesting the nearest reachable staging point.")
			} else {
				warnings = append(warnings,
					"Cannot find legal truck route to exact drop-off. Suggested staging point nearby; proceed last segment with caution/per local guidance.")
			}
		}
	}

	if req.TotalHeightFt > 13.5 {
		warnings = append(warnings,
			fmt.Sprintf("Total height %.2f ft exceeds common US interstate guideline (13'6\").", req.TotalHeightFt))
	}

	merge := func(label string, items []string) {
		for _, t := range items {
			msg := strings.TrimSpace(t)
			if msg == "" {
				continue
			}
			final := label + ": " + msg
			dup := false
			for _, w := range warnings {
				if w == final {
					dup = true
					break
				}
			}
			if !dup {
				warnings = append(warnings, final)
			}
		}
	}
	merge("Primary notice", primaryNotices)
	merge("Alternative notice", altNotices)
	merge("Fallback notice", fallbackNotices)

	useAlt := false
	choiceReason := ""
	if alt.OK {
		if !primary.OK {
			useAlt = true
			choiceReason = "Primary unreachable; using alternative."
		} else if req.TotalHeightFt > 13.5 || viaHint != nil {
			useAlt = true
			choiceReason = "Over height or local restriction risk; using tunnel-free biased alternative."
		}
	} else if fallbackUsed && fallbackSummary != nil && fallbackSummary.OK {
		useAlt = true
		choiceReason = "Exact drop-off unreachable; using nearest reachable staging point."
	}

	res := Result{
		Warnings:       emptyIfNil(warnings),
		PrimarySummary: primarySummary,
		PrimaryPath:    pathCoords(primaryPath),
		FallbackUsed:   fallbackUsed,
		Fallback: Fallback{
			Used:       fallbackUsed,
			RemainingM: fallbackRemaining,
			Summary:    fallbackSummary,
			Path:       pathCoords(fallbackPath),
			Blockers:   emptyIfNil(blockers),
		},
		RouteNotices: RouteNotices{
			Primary:     emptyIfNil(primaryNotices),
			Alternative: emptyIfNil(altNotices),
			Fallback:    emptyIfNil(fallbackNotices),
		},
		Legal: Legal{
			Primary:     primary.OK && !primaryCritical,
			Alternative: alt.OK && !altCritical,
			Fallback:    fallbackUsed && fallbackSummary != nil && fallbackSummary.OK,
		},
		ChosenIsAlternative: useAlt && altSummary != nil && altSummary.OK,
		ChoseReason:         choiceReason,
	}
	if primary.OK {
		res.PrimaryRoute = primary.Raw
	} else {
		res.PrimaryRoute = primary.envelope()
	}
	if alt.OK {
		res.AlternativeRoute = alt.Raw
	}
	if altSummary != nil && altSummary.OK {
		res.AlternativeSummary = altSummary
	}
	if len(altPath) > 0 {
		res.AlternativePath = pathCoords(altPath)
	}
	if fallbackDest != nil {
		d := [2]float64{fallbackDest.Lat, fallbackDest.Lng}
		res.Fallback.Dest = &d
	}
	return res
}
