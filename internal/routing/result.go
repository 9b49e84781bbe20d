package routing

import "haulplan/internal/geo"

// Summary describes one routed leg. A zero OK with Status/Error set means
// the call itself failed.
type Summary struct {
	OK       bool     `json:"ok"`
	Duration *float64 `json:"duration,omitempty"`
	Length   *float64 `json:"length,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Status   int      `json:"status,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Fallback describes the staging-point leg used when the exact drop-off is
// unreachable.
type Fallback struct {
	Used       bool         `json:"used"`
	Dest       *[2]float64  `json:"dest"`
	RemainingM *float64     `json:"remaining_m"`
	Summary    *Summary     `json:"summary"`
	Path       [][2]float64 `json:"path"`
	Blockers   []string     `json:"blockers"`
}

// RouteNotices groups restriction notices per attempted leg.
type RouteNotices struct {
	Primary     []string `json:"primary"`
	Alternative []string `json:"alternative"`
	Fallback    []string `json:"fallback"`
}

// Legal flags which legs came back free of critical restrictions.
type Legal struct {
	Primary     bool `json:"primary"`
	Alternative bool `json:"alternative"`
	Fallback    bool `json:"fallback"`
}

// Result is the full outcome of PlanWithHeightAnalysis. PrimaryRoute carries
// the raw HERE payload when the call succeeded, or the failed attempt
// envelope otherwise. Alternative fields stay null unless that leg succeeded.
type Result struct {
	Warnings            []string       `json:"warnings"`
	PrimaryRoute        map[string]any `json:"primary_route"`
	PrimarySummary      *Summary       `json:"primary_summary"`
	PrimaryPath         [][2]float64   `json:"primary_path"`
	AlternativeRoute    map[string]any `json:"alternative_route"`
	AlternativeSummary  *Summary       `json:"alternative_summary"`
	AlternativePath     [][2]float64   `json:"alternative_path"`
	FallbackUsed        bool           `json:"fallback_used"`
	Fallback            Fallback       `json:"fallback"`
	RouteNotices        RouteNotices   `json:"route_notices"`
	Legal               Legal          `json:"legal"`
	ChosenIsAlternative bool           `json:"chosen_is_alternative"`
	ChoseReason         string         `json:"chose_reason"`
}

// pathCoords flattens points into [lat, lng] pairs for JSON payloads. The
// result is never nil so empty paths serialize as [].
func pathCoords(pts []geo.Point) [][2]float64 {
	out := make([][2]float64, 0, len(pts))
	for _, p := range pts {
		out = append(out, [2]float64{p.Lat, p.Lng})
	}
	return out
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
