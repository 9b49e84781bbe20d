package opt

import (
	"fmt"
	"math"
	"sort"
)

// DOT-style guideline limits. Gross and height caps vary by state and permit;
// these are the common defaults the UI surfaces.
const (
	MaxHeightFeet = 13.5
	MaxWeightLbs  = 80000

	// UpperDeckOffsetFt models the upper deck rail/tilt conservatively.
	UpperDeckOffsetFt = 2.5

	// MaxCars caps how many cars a layout suggestion considers.
	MaxCars = 9
)

var (
	slotsLower = []string{"LOWER_FRONT", "LOWER_MID1", "LOWER_MID2", "LOWER_REAR", "LOWER_TAIL"}
	slotsTop   = []string{"TOP_FRONT", "TOP_MID1", "TOP_MID2", "TOP_REAR"}
)

// LoadCheck aggregates combination totals with DOT-style warnings. No
// slotting happens here.
type LoadCheck struct {
	TruckWeightLbs     float64
	TrailerWeightLbs   float64
	TrailerHeightFt    float64
	TotalWeightLbs     float64
	NaiveTotalHeightFt float64
	TotalHeightFt      float64
	Warnings           []string
}

// CalculateLoad sums combination weight and stacks the tallest car on the
// deck for a quick height read.
func CalculateLoad(truckWeightLbs, trailerWeightLbs, trailerHeightFt float64, cars []Car) LoadCheck {
	totalWeight := truckWeightLbs + trailerWeightLbs
	tallest := 0.0
	for _, c := range cars {
		totalWeight += c.WeightLbs
		if c.HeightFt > tallest {
			tallest = c.HeightFt
		}
	}
	totalHeight := trailerHeightFt + tallest

	var warnings []string
	if totalWeight > MaxWeightLbs {
		warnings = append(warnings, fmt.Sprintf("Total weight %d lbs exceeds DOT limit %d lbs.", int(totalWeight), MaxWeightLbs))
	}
	if totalHeight > MaxHeightFeet {
		warnings = append(warnings, fmt.Sprintf("Total height %.2f ft exceeds legal height %v ft.", totalHeight, MaxHeightFeet))
	}

	return LoadCheck{
		TruckWeightLbs:     truckWeightLbs,
		TrailerWeightLbs:   trailerWeightLbs,
		TrailerHeightFt:    trailerHeightFt,
		TotalWeightLbs:     totalWeight,
		NaiveTotalHeightFt: round2(totalHeight),
		TotalHeightFt:      round2(totalHeight),
		Warnings:           warnings,
	}
}

// ArrangedSlot is one filled slot in a tallest-first arrangement.
type ArrangedSlot struct {
	Car            Car
	LoadedHeightFt float64
	Deck           string // LOWER / TOP
}

// Arrangement is the tallest-first suggestion: no axle or egress awareness,
// just peak-height minimization.
type Arrangement struct {
	Layout              map[string]*ArrangedSlot // nil value = empty slot
	LowerLoadedFt       float64
	UpperLoadedFt       float64
	UpperDeckOffsetFt   float64
	ComputedMaxHeightFt float64
	ArrangedCars        []Car
	Warnings            []string
}

func loadedHeightForSlot(baseDeckFt, carHeightFt float64, isUpper bool) float64 {
	if isUpper {
		return baseDeckFt + UpperDeckOffsetFt + carHeightFt
	}
	return baseDeckFt + carHeightFt
}

// greedyArrange fills the lower deck tallest-first, then the top deck with
// the remainder shortest-first to keep the peak down.
func greedyArrange(cars []Car, deckFt float64) (map[string]*ArrangedSlot, float64, float64) {
	sorted := append([]Car(nil), cars...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HeightFt != b.HeightFt {
			return a.HeightFt > b.HeightFt
		}
		return a.WeightLbs > b.WeightLbs
	})

	layout := make(map[string]*ArrangedSlot, len(slotsLower)+len(slotsTop))
	for _, s := range slotsLower {
		layout[s] = nil
	}
	for _, s := range slotsTop {
		layout[s] = nil
	}

	lowerMax, upperMax := 0.0, 0.0

	n := len(sorted)
	if n > len(slotsLower) {
		n = len(slotsLower)
	}
	for i := 0; i < n; i++ {
		loaded := loadedHeightForSlot(deckFt, sorted[i].HeightFt, false)
		layout[slotsLower[i]] = &ArrangedSlot{Car: sorted[i], LoadedHeightFt: round2(loaded), Deck: "LOWER"}
		if loaded > lowerMax {
			lowerMax = loaded
		}
	}

	remaining := append([]Car(nil), sorted[n:]...)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].HeightFt < remaining[j].HeightFt
	})
	for i := 0; i < len(remaining) && i < len(slotsTop); i++ {
		loaded := loadedHeightForSlot(deckFt, remaining[i].HeightFt, true)
		layout[slotsTop[i]] = &ArrangedSlot{Car: remaining[i], LoadedHeightFt: round2(loaded), Deck: "TOP"}
		if loaded > upperMax {
			upperMax = loaded
		}
	}

	return layout, round2(lowerMax), round2(upperMax)
}

// SuggestArrangement runs the tallest-first greedy and attaches GVW and
// height-guideline warnings.
func SuggestArrangement(cars []Car, trailerHeightFt, maxHeightFt, truckWeightLbs, trailerWeightLbs, maxWeightLbs float64) Arrangement {
	layout, lowerMax, upperMax := greedyArrange(cars, trailerHeightFt)
	computedMax := math.Max(lowerMax, upperMax)

	var warnings []string
	totalWeight := truckWeightLbs + trailerWeightLbs
	for _, c := range cars {
		totalWeight += c.WeightLbs
	}
	if totalWeight > maxWeightLbs {
		warnings = append(warnings, fmt.Sprintf("Total weight %.0f lbs exceeds common GVW cap of %.0f lbs without permits.", totalWeight, maxWeightLbs))
	}
	if computedMax > maxHeightFt {
		warnings = append(warnings, fmt.Sprintf("Loaded height %.2f ft exceeds %.1f ft guideline. Consider moving taller cars to LOWER or reducing deck.", computedMax, maxHeightFt))
	}

	var arranged []Car
	for _, name := range slotsLower {
		if layout[name] != nil {
			arranged = append(arranged, layout[name].Car)
		}
	}
	for _, name := range slotsTop {
		if layout[name] != nil {
			arranged = append(arranged, layout[name].Car)
		}
	}

	return Arrangement{
		Layout:              layout,
		LowerLoadedFt:       lowerMax,
		UpperLoadedFt:       upperMax,
		UpperDeckOffsetFt:   UpperDeckOffsetFt,
		ComputedMaxHeightFt: round2(computedMax),
		ArrangedCars:        arranged,
		Warnings:            warnings,
	}
}

// LayoutCar identifies a car by catalog fields for route-plan suggestions.
// HeightFt and WeightLbs are resolved estimates, never zero.
type LayoutCar struct {
	Make      string
	Model     string
	Year      int
	HeightFt  float64
	WeightLbs float64
}

// LayoutSlot is one filled slot in a route-plan layout suggestion.
type LayoutSlot struct {
	Car            LayoutCar
	LoadedHeightFt float64
}

// LayoutSuggestion is the quick lower/upper split used by route planning.
type LayoutSuggestion struct {
	Layout            map[string]*LayoutSlot // nil value = empty slot
	LowerLoadedFt     float64
	UpperLoadedFt     float64
	UpperDeckOffsetFt float64
}

// SuggestLayout seats up to MaxCars tallest-first on the lower deck, spills
// the rest up top, and derives an upper-deck offset from the deck height
// (clamped to 2.3..3.0 ft).
func SuggestLayout(cars []LayoutCar, deckHeightFt float64) LayoutSuggestion {
	picked := append([]LayoutCar(nil), cars...)
	if len(picked) > MaxCars {
		picked = picked[:MaxCars]
	}
	sort.SliceStable(picked, func(i, j int) bool {
		a, b := picked[i], picked[j]
		if a.HeightFt != b.HeightFt {
			return a.HeightFt > b.HeightFt
		}
		return a.WeightLbs < b.WeightLbs
	})

	var lower, upper []LayoutCar
	if len(picked) > 5 {
		lower, upper = picked[:5], picked[5:]
	} else {
		lower = picked
	}

	upperOffset := math.Max(2.3, math.Min(3.0, deckHeightFt*0.5))

	lowerMax, upperMax := 0.0, 0.0
	for _, c := range lower {
		if h := deckHeightFt + c.HeightFt; h > lowerMax {
			lowerMax = h
		}
	}
	for _, c := range upper {
		if h := upperOffset + c.HeightFt; h > upperMax {
			upperMax = h
		}
	}

	layout := make(map[string]*LayoutSlot, len(slotsLower)+len(slotsTop))
	pack := func(names []string, arr []LayoutCar, base float64) {
		for i, name := range names {
			if i < len(arr) {
				layout[name] = &LayoutSlot{Car: arr[i], LoadedHeightFt: round2(base + arr[i].HeightFt)}
			} else {
				layout[name] = nil
			}
		}
	}
	pack(slotsLower, lower, deckHeightFt)
	pack(slotsTop, upper, upperOffset)

	return LayoutSuggestion{
		Layout:            layout,
		LowerLoadedFt:     round2(lowerMax),
		UpperLoadedFt:     round2(upperMax),
		UpperDeckOffsetFt: round2(upperOffset),
	}
}
