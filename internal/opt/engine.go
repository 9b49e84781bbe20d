package opt

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// InfeasibleFitness is returned when the constructive pass cannot seat every
// car. Real plans always score strictly above it.
const InfeasibleFitness = -1e9

const infeasibleWarning = "No feasible placement found with current constraints. Try adjusting height/weight or slot geometry."

func fitsSlot(c Car, s Slot, rig Rig) bool {
	if c.LengthFt > s.MaxLengthFt {
		return false
	}
	if c.WidthFt > s.MaxWidthFt {
		return false
	}
	if c.HeightFt > rig.MaxHeightFt {
		return false
	}
	if c.HeightFt > s.MaxHeightFt+s.HeightMarginFt {
		return false
	}
	return true
}

// slotScore ranks feasible slots for one car at construction time. Higher is
// better. Biases heavy/tall cars toward easy-egress lower-deck slots with
// headroom to spare, and heavier cars toward steer-axle influence.
func slotScore(c Car, s Slot) float64 {
	heightMargin := (s.MaxHeightFt + s.HeightMarginFt) - c.HeightFt
	egressBonus := math.Max(0, 10-float64(s.PositionRank))
	lowDeckBonus := 0.0
	if s.Deck != "TOP" {
		lowDeckBonus = 2.0
	}
	frontBias := s.AxleInfluence["steer"] * (c.WeightLbs / 1000.0)
	return 1.5*heightMargin + 2.0*egressBonus + lowDeckBonus + frontBias - 1.0*s.AdjustmentCost
}

// constructive seats cars heaviest-first (then longest, then earliest drop)
// into the best-scoring open slot. Returns nil when some car fits nowhere.
// Axle limits are not enforced here; scoring penalizes overloads instead.
func constructive(p Problem) []Assignment {
	cars := append([]Car(nil), p.Cars...)
	sort.SliceStable(cars, func(i, j int) bool {
		a, b := cars[i], cars[j]
		if a.WeightLbs != b.WeightLbs {
			return a.WeightLbs > b.WeightLbs
		}
		if a.LengthFt != b.LengthFt {
			return a.LengthFt > b.LengthFt
		}
		return a.DropOrder < b.DropOrder
	})
	open := make([]bool, len(p.Slots))
	for i := range open {
		open[i] = true
	}
	out := make([]Assignment, 0, len(cars))
	for _, car := range cars {
		best := -1
		bestScore := 0.0
		for si := range p.Slots {
			if !open[si] || !fitsSlot(car, p.Slots[si], p.Rig) {
				continue
			}
			if sc := slotScore(car, p.Slots[si]); best < 0 || sc > bestScore {
				best = si
				bestScore = sc
			}
		}
		if best < 0 {
			return nil
		}
		out = append(out, Assignment{CarID: car.ID, SlotID: p.Slots[best].ID})
		open[best] = false
	}
	return out
}

// unloadMoves counts drop-order inversions along the egress ranking: pairs
// where a later-drop car occupies an easier slot than an earlier-drop car.
func unloadMoves(assign []Assignment, cars map[string]Car, slots map[string]Slot) int {
	byRank := append([]Assignment(nil), assign...)
	sort.SliceStable(byRank, func(i, j int) bool {
		return slots[byRank[i].SlotID].PositionRank < slots[byRank[j].SlotID].PositionRank
	})
	moves := 0
	for i := 0; i < len(byRank); i++ {
		for j := i + 1; j < len(byRank); j++ {
			if cars[byRank[i].CarID].DropOrder > cars[byRank[j].CarID].DropOrder {
				moves++
			}
		}
	}
	return moves
}

// score evaluates a complete assignment without hard-failing over-limit
// cases: loads may exceed limits, penalties price the overage so the refiner
// can still compare candidates.
func score(assign []Assignment, cars map[string]Car, slots map[string]Slot, rig Rig) Scores {
	loads := make(map[string]float64, len(rig.EmptyAxleLbs))
	for axle, lbs := range rig.EmptyAxleLbs {
		loads[axle] = lbs
	}
	for _, a := range assign {
		c, s := cars[a.CarID], slots[a.SlotID]
		for axle, share := range s.AxleInfluence {
			loads[axle] += share * c.WeightLbs
		}
	}

	unload := unloadMoves(assign, cars, slots)

	// Max axle utilization; 1.05 means 5% over limit. Axles without a
	// configured limit are ignored.
	maxPct := 0.0
	for axle, load := range loads {
		limit := rig.AxleLimitsLbs[axle]
		if limit == 0 {
			continue
		}
		if pct := load / limit; pct > maxPct {
			maxPct = pct
		}
	}

	heightPen := 0.0
	adjCost := 0.0
	for _, a := range assign {
		c, s := cars[a.CarID], slots[a.SlotID]
		if margin := (s.MaxHeightFt + s.HeightMarginFt) - c.HeightFt; margin < 0 {
			heightPen += -margin
		}
		adjCost += s.AdjustmentCost
	}

	axleOverPen := 800 * math.Max(0, (maxPct-1.0)*100)
	fitness := -(50*float64(unload) + axleOverPen + 100*heightPen + 1*adjCost)
	return Scores{
		Fitness:       fitness,
		UnloadMoves:   float64(unload),
		AxleMaxPct:    maxPct,
		HeightPenalty: heightPen,
		AdjCost:       adjCost,
	}
}

// trySwap exchanges the slots of two assignment entries. Cars keep their
// positions in the list so the swap is its own inverse.
func trySwap(assign []Assignment, i, j int) []Assignment {
	out := append([]Assignment(nil), assign...)
	out[i].SlotID, out[j].SlotID = assign[j].SlotID, assign[i].SlotID
	return out
}

func planWarnings(s Scores) []string {
	var out []string
	if s.UnloadMoves > 0 {
		out = append(out, fmt.Sprintf("Estimated unload repositions: %d", int(s.UnloadMoves)))
	}
	if s.AxleMaxPct > 1.0 {
		out = append(out, "Axle over-limit risk detected.")
	}
	if s.HeightPenalty > 0 {
		out = append(out, "One or more cars exceed slot height margin.")
	}
	return out
}

// Solve builds a constructive plan and refines it with seeded pairwise-swap
// hill climbing: draw two positions, swap their slots, keep the candidate only
// on a strict fitness improvement. Swaps are not re-checked for fit; the
// penalty terms price any violation a swap introduces. Identical inputs and
// seed reproduce identical output.
func Solve(p Problem, seed int64, maxIters int) (Plan, Metrics) {
	return SolveObserved(p, seed, maxIters, nil)
}

// SolveObserved is Solve with a progress callback. onImprove fires after each
// adopted swap with the 1-based iteration index and the new best fitness; a
// nil callback makes it identical to Solve.
func SolveObserved(p Problem, seed int64, maxIters int, onImprove func(iteration int, fitness float64)) (Plan, Metrics) {
	rng := rand.New(rand.NewSource(seed))

	base := constructive(p)
	if base == nil {
		return Plan{
			Assignments: []Assignment{},
			Scores:      Scores{Fitness: InfeasibleFitness},
			Warnings:    []string{infeasibleWarning},
		}, Metrics{}
	}

	cars := make(map[string]Car, len(p.Cars))
	for _, c := range p.Cars {
		cars[c.ID] = c
	}
	slots := make(map[string]Slot, len(p.Slots))
	for _, s := range p.Slots {
		slots[s.ID] = s
	}

	best := base
	bestScores := score(best, cars, slots, p.Rig)
	m := Metrics{BaseFitness: bestScores.Fitness, Feasible: true}

	if len(best) > 1 {
		for n := 0; n < maxIters; n++ {
			m.Iterations++
			i := rng.Intn(len(best))
			j := rng.Intn(len(best))
			if i == j {
				continue
			}
			m.SwapsTried++
			cand := trySwap(best, i, j)
			if cs := score(cand, cars, slots, p.Rig); cs.Fitness > bestScores.Fitness {
				best, bestScores = cand, cs
				m.Improvements++
				if onImprove != nil {
					onImprove(m.Iterations, bestScores.Fitness)
				}
			}
		}
	}

	m.BestFitness = bestScores.Fitness
	return Plan{
		Assignments: best,
		Scores:      bestScores,
		Warnings:    planWarnings(bestScores),
		Feasible:    true,
	}, m
}
