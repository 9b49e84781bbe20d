package opt

import (
	"fmt"
	"math"
	"strings"
)

// Deck-height projection over a finished placement. Keep these aligned with
// the rig and frontend defaults.
const (
	DefaultDeckHeightFt      = 5.0
	DefaultUpperDeckOffsetFt = 2.5 // fallback for unknown top slots

	DefaultPlanMaxIters = 400

	// MaxHeightFtGuideline is the common legal height guideline; permits and
	// jurisdictions vary.
	MaxHeightFtGuideline = 13.5
)

// DefaultSlotOffsetsTop maps top-deck slots to their rail/tilt offsets.
func DefaultSlotOffsetsTop() map[string]float64 {
	return map[string]float64{
		"T1_HEAD":  2.0,
		"T2_FRONT": 2.6,
		"T3_MID":   2.8,
		"T4_REAR":  2.5,
	}
}

// OrientationRules controls when a car may be loaded nose-back to shave peak
// height.
type OrientationRules struct {
	AllowReversed         bool
	TopOnly               bool
	MinHeightForBenefitFt float64 // only consider reversing at least this tall
	ReverseBonusFt        float64 // height shaved when reversed on an eligible slot
}

func DefaultOrientationRules() OrientationRules {
	return OrientationRules{
		AllowReversed:         true,
		TopOnly:               true,
		MinHeightForBenefitFt: 5.6,
		ReverseBonusFt:        0.30,
	}
}

// LoadedAssignment augments an assignment with orientation and projected
// loaded height.
type LoadedAssignment struct {
	CarID       string
	SlotID      string
	Orientation string // forward / reversed
	LoadedFt    float64
	OffsetFt    float64
}

// PeakSlot names the tallest loaded slot on one deck.
type PeakSlot struct {
	SlotID   string
	LoadedFt float64
}

// HeightProjection summarizes loaded heights per deck after projection.
type HeightProjection struct {
	Assignments []LoadedAssignment
	LowerFt     float64
	UpperFt     float64
	LowerPeak   *PeakSlot
	UpperPeak   *PeakSlot
	OffsetsUsed map[string]float64 // effective per-slot offsets after overrides
	Warnings    []string           // guideline violations only
}

// IsTopSlot reports whether a slot id names an upper-deck position.
func IsTopSlot(slotID string) bool {
	s := strings.ToUpper(slotID)
	return strings.HasPrefix(s, "T") || strings.Contains(s, "TOP")
}

func slotOffset(slotID string, top map[string]float64) float64 {
	if !IsTopSlot(slotID) {
		return 0
	}
	if off, ok := top[slotID]; ok {
		return off
	}
	return DefaultUpperDeckOffsetFt
}

// ProjectHeights applies deck height and per-slot offsets to a placement and
// picks a forward/reversed orientation per car. Offsets from the overrides
// map win over the built-in top-deck table; unknown top slots fall back to
// DefaultUpperDeckOffsetFt.
func ProjectHeights(assign []Assignment, cars []Car, deckHeightFt float64, offsets map[string]float64, rules OrientationRules) HeightProjection {
	top := DefaultSlotOffsetsTop()
	for k, v := range offsets {
		top[k] = v
	}

	byID := make(map[string]Car, len(cars))
	for _, c := range cars {
		byID[c.ID] = c
	}

	out := HeightProjection{Assignments: make([]LoadedAssignment, 0, len(assign))}
	for _, a := range assign {
		car, ok := byID[a.CarID]
		if !ok || a.SlotID == "" {
			continue
		}
		isTop := IsTopSlot(a.SlotID)
		offset := slotOffset(a.SlotID, top)

		orientation := "forward"
		bonus := 0.0
		if rules.AllowReversed && (!rules.TopOnly || isTop) && car.HeightFt >= rules.MinHeightForBenefitFt {
			orientation = "reversed"
			bonus = rules.ReverseBonusFt
		}

		loaded := round2(math.Max(0, deckHeightFt+offset+car.HeightFt-bonus))
		if isTop {
			if loaded > out.UpperFt {
				out.UpperFt = loaded
				out.UpperPeak = &PeakSlot{SlotID: a.SlotID, LoadedFt: loaded}
			}
		} else {
			if loaded > out.LowerFt {
				out.LowerFt = loaded
				out.LowerPeak = &PeakSlot{SlotID: a.SlotID, LoadedFt: loaded}
			}
		}
		out.Assignments = append(out.Assignments, LoadedAssignment{
			CarID:       a.CarID,
			SlotID:      a.SlotID,
			Orientation: orientation,
			LoadedFt:    loaded,
			OffsetFt:    round2(offset),
		})
	}

	var over []string
	for _, la := range out.Assignments {
		if la.LoadedFt > MaxHeightFtGuideline {
			over = append(over, fmt.Sprintf("%s (%s) %v ft", la.SlotID, la.CarID, la.LoadedFt))
		}
	}
	if len(over) > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Loaded height exceeds %.1f ft at: %s", MaxHeightFtGuideline, strings.Join(over, ", ")))
	}

	out.LowerFt = round2(out.LowerFt)
	out.UpperFt = round2(out.UpperFt)
	out.OffsetsUsed = top
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
