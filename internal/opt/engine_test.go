package opt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoCars() []Car {
	return []Car{
		{ID: "A", LengthFt: 15.8, WidthFt: 6.2, HeightFt: 5.3, WeightLbs: 4200, DropOrder: 1},
		{ID: "B", LengthFt: 14.5, WidthFt: 6.0, HeightFt: 5.1, WeightLbs: 3600, DropOrder: 2},
		{ID: "C", LengthFt: 16.2, WidthFt: 6.1, HeightFt: 5.8, WeightLbs: 4400, DropOrder: 1},
		{ID: "D", LengthFt: 14.0, WidthFt: 6.0, HeightFt: 5.0, WeightLbs: 3300, DropOrder: 3},
		{ID: "E", LengthFt: 15.0, WidthFt: 6.1, HeightFt: 5.2, WeightLbs: 3900, DropOrder: 2},
		{ID: "F", LengthFt: 14.8, WidthFt: 6.0, HeightFt: 5.2, WeightLbs: 3700, DropOrder: 3},
		{ID: "G", LengthFt: 14.6, WidthFt: 6.0, HeightFt: 5.0, WeightLbs: 3400, DropOrder: 4},
		{ID: "H", LengthFt: 15.2, WidthFt: 6.1, HeightFt: 5.4, WeightLbs: 3950, DropOrder: 4},
		{ID: "I", LengthFt: 14.9, WidthFt: 6.1, HeightFt: 5.1, WeightLbs: 3650, DropOrder: 5},
	}
}

func demoProblem() Problem {
	return Problem{Cars: demoCars(), Slots: DefaultSlots9(), Rig: DefaultRig()}
}

func TestSolveReturnsFullPlan(t *testing.T) {
	plan, m := Solve(demoProblem(), DefaultSeed, 200)

	require.True(t, plan.Feasible)
	require.Len(t, plan.Assignments, 9)
	assert.Greater(t, plan.Scores.Fitness, InfeasibleFitness)
	assert.GreaterOrEqual(t, plan.Scores.UnloadMoves, 0.0)
	assert.Equal(t, 200, m.Iterations)
	assert.Equal(t, plan.Scores.Fitness, m.BestFitness)
	assert.GreaterOrEqual(t, m.BestFitness, m.BaseFitness)
}

func TestSolveAssignsEachCarAndSlotOnce(t *testing.T) {
	plan, _ := Solve(demoProblem(), DefaultSeed, 200)

	carSeen := map[string]bool{}
	slotSeen := map[string]bool{}
	for _, a := range plan.Assignments {
		assert.False(t, carSeen[a.CarID], "car %s assigned twice", a.CarID)
		assert.False(t, slotSeen[a.SlotID], "slot %s used twice", a.SlotID)
		carSeen[a.CarID] = true
		slotSeen[a.SlotID] = true
	}
}

func TestSolveDeterministicForSeed(t *testing.T) {
	p := demoProblem()
	first, m1 := Solve(p, 17, 800)
	second, m2 := Solve(p, 17, 800)

	require.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Scores, second.Scores)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, m1, m2)
}

func TestSolveMoreCarsThanSlots(t *testing.T) {
	p := demoProblem()
	p.Cars = append(p.Cars, Car{ID: "J", LengthFt: 15.0, WidthFt: 6.0, HeightFt: 5.0, WeightLbs: 3500, DropOrder: 6})

	plan, m := Solve(p, DefaultSeed, 200)

	assert.False(t, plan.Feasible)
	assert.Empty(t, plan.Assignments)
	assert.Equal(t, InfeasibleFitness, plan.Scores.Fitness)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "No feasible placement")
	assert.False(t, m.Feasible)
}

func TestSolveOverheightCar(t *testing.T) {
	p := Problem{
		Cars:  []Car{{ID: "TALL", LengthFt: 15.0, WidthFt: 6.0, HeightFt: 14.0, WeightLbs: 3500, DropOrder: 1}},
		Slots: DefaultSlots9(),
		Rig:   DefaultRig(),
	}

	plan, _ := Solve(p, DefaultSeed, 200)

	assert.False(t, plan.Feasible)
	assert.Equal(t, InfeasibleFitness, plan.Scores.Fitness)
}

func TestSolveRefinementNeverWorse(t *testing.T) {
	p := demoProblem()
	baseline, _ := Solve(p, 17, 0)
	refined, _ := Solve(p, 17, 800)

	assert.GreaterOrEqual(t, refined.Scores.Fitness, baseline.Scores.Fitness)
}

func TestSolveZeroBudgetIsConstructiveOnly(t *testing.T) {
	plan, m := Solve(demoProblem(), 17, 0)

	require.Len(t, plan.Assignments, 9)
	assert.Equal(t, 0, m.Iterations)
	assert.Equal(t, 0, m.SwapsTried)
	assert.Equal(t, m.BaseFitness, m.BestFitness)
}

func TestConstructiveSeatsHeaviestFirst(t *testing.T) {
	// C is heaviest (4400 lbs) and scores best on B1_FRONT: widest margins,
	// easiest egress, lower deck, strongest steer influence, cheapest setup.
	// A (4200 lbs) is next and lands on T1_HEAD once B1_FRONT is taken.
	plan, _ := Solve(demoProblem(), 17, 0)

	require.Len(t, plan.Assignments, 9)
	assert.Equal(t, Assignment{CarID: "C", SlotID: "B1_FRONT"}, plan.Assignments[0])
	assert.Equal(t, Assignment{CarID: "A", SlotID: "T1_HEAD"}, plan.Assignments[1])
}

func TestConstructiveOrderKeys(t *testing.T) {
	slot := func(id string) Slot {
		return Slot{
			ID: id, Deck: "BOTTOM", PositionRank: 1,
			MaxLengthFt: 20, MaxWidthFt: 8, MaxHeightFt: 7, HeightMarginFt: 0.5,
			AdjustmentCost: 0.5, AxleInfluence: DefaultAxleInfluence(),
		}
	}
	p := Problem{
		Cars: []Car{
			{ID: "P", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 3500, DropOrder: 2},
			{ID: "Q", LengthFt: 16, WidthFt: 6, HeightFt: 5, WeightLbs: 3500, DropOrder: 1},
			{ID: "R", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 3500, DropOrder: 1},
		},
		Slots: []Slot{slot("S1"), slot("S2"), slot("S3")},
		Rig:   DefaultRig(),
	}

	plan, _ := Solve(p, 17, 0)

	// Equal weights: longest first, then earliest drop.
	require.Len(t, plan.Assignments, 3)
	assert.Equal(t, "Q", plan.Assignments[0].CarID)
	assert.Equal(t, "R", plan.Assignments[1].CarID)
	assert.Equal(t, "P", plan.Assignments[2].CarID)
}

func TestConstructiveTieBreaksOnCatalogOrder(t *testing.T) {
	twin := Slot{
		Deck: "BOTTOM", PositionRank: 1,
		MaxLengthFt: 20, MaxWidthFt: 8, MaxHeightFt: 7, HeightMarginFt: 0.5,
		AdjustmentCost: 0.5, AxleInfluence: DefaultAxleInfluence(),
	}
	first, second := twin, twin
	first.ID, second.ID = "S1", "S2"
	p := Problem{
		Cars:  []Car{{ID: "X", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 3500, DropOrder: 1}},
		Slots: []Slot{first, second},
		Rig:   DefaultRig(),
	}

	plan, _ := Solve(p, 17, 0)

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "S1", plan.Assignments[0].SlotID)
}

func TestFitsSlotBoundaries(t *testing.T) {
	rig := DefaultRig()
	s := Slot{
		ID: "S", Deck: "BOTTOM", PositionRank: 1,
		MaxLengthFt: 16.0, MaxWidthFt: 7.0, MaxHeightFt: 6.0, HeightMarginFt: 0.5,
		AxleInfluence: DefaultAxleInfluence(),
	}

	exact := Car{ID: "E", LengthFt: 16.0, WidthFt: 7.0, HeightFt: 6.5, WeightLbs: 3500}
	assert.True(t, fitsSlot(exact, s, rig), "boundary values fit")

	long := exact
	long.LengthFt = 16.01
	assert.False(t, fitsSlot(long, s, rig))

	wide := exact
	wide.WidthFt = 7.01
	assert.False(t, fitsSlot(wide, s, rig))

	tall := exact
	tall.HeightFt = 6.51
	assert.False(t, fitsSlot(tall, s, rig), "exceeds slot height plus margin")

	overRig := exact
	overRig.HeightFt = rig.MaxHeightFt + 0.1
	assert.False(t, fitsSlot(overRig, s, rig), "exceeds rig max height")
}

func TestSlotScoreFormula(t *testing.T) {
	c := Car{ID: "X", HeightFt: 5.8, WeightLbs: 4400}
	s := Slot{
		ID: "B1_FRONT", Deck: "BOTTOM", PositionRank: 1,
		MaxHeightFt: 6.2, HeightMarginFt: 0.6, AdjustmentCost: 0.6,
		AxleInfluence: map[string]float64{"steer": 0.20, "drive": 0.55, "trailer": 0.25},
	}

	// 1.5*1.0 + 2.0*9 + 2.0 + 0.20*4.4 - 0.6
	assert.InDelta(t, 21.78, slotScore(c, s), 1e-9)

	top := s
	top.Deck = "TOP"
	assert.InDelta(t, 19.78, slotScore(c, top), 1e-9, "no low-deck bonus on TOP")

	far := s
	far.PositionRank = 12
	assert.InDelta(t, 21.78-18.0, slotScore(c, far), 1e-9, "ranks past 10 earn no egress bonus")
}

func TestUnloadMovesCountsInversions(t *testing.T) {
	cars := map[string]Car{
		"X": {ID: "X", DropOrder: 2},
		"Y": {ID: "Y", DropOrder: 1},
		"Z": {ID: "Z", DropOrder: 3},
	}
	slots := map[string]Slot{
		"S1": {ID: "S1", PositionRank: 1},
		"S2": {ID: "S2", PositionRank: 2},
		"S3": {ID: "S3", PositionRank: 3},
	}

	// Ranked order X(2), Y(1), Z(3): only (X,Y) inverted.
	assign := []Assignment{{CarID: "X", SlotID: "S1"}, {CarID: "Y", SlotID: "S2"}, {CarID: "Z", SlotID: "S3"}}
	assert.Equal(t, 1, unloadMoves(assign, cars, slots))

	// Fully inverted: Z(3), X(2), Y(1) by rank.
	worst := []Assignment{{CarID: "Z", SlotID: "S1"}, {CarID: "X", SlotID: "S2"}, {CarID: "Y", SlotID: "S3"}}
	assert.Equal(t, 3, unloadMoves(worst, cars, slots))

	// Aligned: no moves.
	clean := []Assignment{{CarID: "Y", SlotID: "S1"}, {CarID: "X", SlotID: "S2"}, {CarID: "Z", SlotID: "S3"}}
	assert.Equal(t, 0, unloadMoves(clean, cars, slots))
}

func TestScoreCleanPlanIsAdjustmentCostOnly(t *testing.T) {
	cars := map[string]Car{
		"X": {ID: "X", HeightFt: 5.0, WeightLbs: 3000, DropOrder: 1},
		"Y": {ID: "Y", HeightFt: 5.0, WeightLbs: 3000, DropOrder: 2},
	}
	slots := map[string]Slot{
		"B1_FRONT": {ID: "B1_FRONT", PositionRank: 1, MaxHeightFt: 6.2, HeightMarginFt: 0.6, AdjustmentCost: 0.6,
			AxleInfluence: map[string]float64{"steer": 0.20, "drive": 0.55, "trailer": 0.25}},
		"B2_MID": {ID: "B2_MID", PositionRank: 4, MaxHeightFt: 6.2, HeightMarginFt: 0.5, AdjustmentCost: 0.5,
			AxleInfluence: map[string]float64{"steer": 0.14, "drive": 0.50, "trailer": 0.36}},
	}
	assign := []Assignment{{CarID: "X", SlotID: "B1_FRONT"}, {CarID: "Y", SlotID: "B2_MID"}}

	s := score(assign, cars, slots, DefaultRig())

	assert.InDelta(t, -1.1, s.Fitness, 1e-9)
	assert.Equal(t, 0.0, s.UnloadMoves)
	assert.Equal(t, 0.0, s.HeightPenalty)
	assert.Less(t, s.AxleMaxPct, 1.0)
	assert.InDelta(t, 1.1, s.AdjCost, 1e-9)
}

func TestScoreAxleOverloadPenalty(t *testing.T) {
	cars := map[string]Car{"HEAVY": {ID: "HEAVY", HeightFt: 5.0, WeightLbs: 60000, DropOrder: 1}}
	slots := map[string]Slot{
		"B1": {ID: "B1", PositionRank: 1, MaxHeightFt: 6.2, HeightMarginFt: 0.6, AdjustmentCost: 0.6,
			AxleInfluence: map[string]float64{"steer": 0.20, "drive": 0.55, "trailer": 0.25}},
	}

	s := score([]Assignment{{CarID: "HEAVY", SlotID: "B1"}}, cars, slots, DefaultRig())

	// drive: 18000 + 0.55*60000 = 51000 over a 34000 limit.
	assert.InDelta(t, 51000.0/34000.0, s.AxleMaxPct, 1e-9)
	assert.Greater(t, s.AxleMaxPct, 1.0)
	expected := -(800*(s.AxleMaxPct-1.0)*100 + s.AdjCost)
	assert.InDelta(t, expected, s.Fitness, 1e-6)
}

func TestScoreHeightPenaltyFromNegativeMargin(t *testing.T) {
	cars := map[string]Car{"T": {ID: "T", HeightFt: 6.5, WeightLbs: 3000, DropOrder: 1}}
	slots := map[string]Slot{
		"S": {ID: "S", PositionRank: 1, MaxHeightFt: 5.5, HeightMarginFt: 0.5, AdjustmentCost: 1.0,
			AxleInfluence: DefaultAxleInfluence()},
	}

	s := score([]Assignment{{CarID: "T", SlotID: "S"}}, cars, slots, DefaultRig())

	assert.InDelta(t, 0.5, s.HeightPenalty, 1e-9)
	assert.InDelta(t, -(100*0.5 + 1.0), s.Fitness, 1e-9)
}

func TestPlanWarningsOrderAndThresholds(t *testing.T) {
	all := Scores{UnloadMoves: 3, AxleMaxPct: 1.02, HeightPenalty: 0.4}
	got := planWarnings(all)
	require.Len(t, got, 3)
	assert.Equal(t, "Estimated unload repositions: 3", got[0])
	assert.Equal(t, "Axle over-limit risk detected.", got[1])
	assert.Equal(t, "One or more cars exceed slot height margin.", got[2])

	assert.Empty(t, planWarnings(Scores{UnloadMoves: 0, AxleMaxPct: 1.0, HeightPenalty: 0}))
}

func TestSolveReportsUnloadWarning(t *testing.T) {
	// Heavier car drops later but wins the easy-egress slot, so the ranked
	// order inverts the drop order. Zero budget keeps the inversion.
	mk := func(id string, rank int, adj float64) Slot {
		return Slot{
			ID: id, Deck: "BOTTOM", PositionRank: rank,
			MaxLengthFt: 20, MaxWidthFt: 8, MaxHeightFt: 7, HeightMarginFt: 0.5,
			AdjustmentCost: adj, AxleInfluence: DefaultAxleInfluence(),
		}
	}
	p := Problem{
		Cars: []Car{
			{ID: "LATE", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 5000, DropOrder: 2},
			{ID: "EARLY", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 3000, DropOrder: 1},
		},
		Slots: []Slot{mk("EASY", 1, 0.5), mk("HARD", 5, 0.5)},
		Rig:   DefaultRig(),
	}

	plan, _ := Solve(p, 17, 0)

	require.True(t, plan.Feasible)
	assert.Equal(t, 1.0, plan.Scores.UnloadMoves)
	require.NotEmpty(t, plan.Warnings)
	assert.Equal(t, "Estimated unload repositions: 1", plan.Warnings[0])
}

func TestSolveSwapAdoptedOnlyOnStrictImprovement(t *testing.T) {
	// With enough budget the refiner must resolve the single inversion from
	// the constructive seed; the swapped plan scores strictly higher.
	mk := func(id string, rank int) Slot {
		return Slot{
			ID: id, Deck: "BOTTOM", PositionRank: rank,
			MaxLengthFt: 20, MaxWidthFt: 8, MaxHeightFt: 7, HeightMarginFt: 0.5,
			AdjustmentCost: 0.5, AxleInfluence: DefaultAxleInfluence(),
		}
	}
	p := Problem{
		Cars: []Car{
			{ID: "LATE", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 5000, DropOrder: 2},
			{ID: "EARLY", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 3000, DropOrder: 1},
		},
		Slots: []Slot{mk("EASY", 1), mk("HARD", 5)},
		Rig:   DefaultRig(),
	}

	plan, m := Solve(p, 17, 100)

	assert.Equal(t, 0.0, plan.Scores.UnloadMoves)
	assert.Equal(t, 1, m.Improvements)
	assert.Empty(t, plan.Warnings)
}

func TestSolveObservedReportsEachImprovement(t *testing.T) {
	p := demoProblem()
	var iters []int
	var fits []float64
	plan, m := SolveObserved(p, 17, 800, func(iteration int, fitness float64) {
		iters = append(iters, iteration)
		fits = append(fits, fitness)
	})

	require.Len(t, iters, m.Improvements)
	for k := 1; k < len(iters); k++ {
		assert.Greater(t, iters[k], iters[k-1])
		assert.Greater(t, fits[k], fits[k-1])
	}
	if len(fits) > 0 {
		assert.Equal(t, plan.Scores.Fitness, fits[len(fits)-1])
	}

	direct, _ := Solve(p, 17, 800)
	assert.Equal(t, direct, plan)
}

func TestSolveSingleCarSkipsRefinement(t *testing.T) {
	p := Problem{
		Cars:  []Car{{ID: "ONLY", LengthFt: 15, WidthFt: 6, HeightFt: 5, WeightLbs: 3500, DropOrder: 1}},
		Slots: DefaultSlots9(),
		Rig:   DefaultRig(),
	}

	plan, m := Solve(p, 17, 500)

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, 0, m.SwapsTried)
}

func TestRecordMetricsPerTenantAndDay(t *testing.T) {
	RecordMetrics("t_a", "2026-03-01", "placement", Metrics{Iterations: 800, Feasible: true})
	RecordMetrics("t_a", "2026-03-01", "placement-plan", Metrics{Iterations: 400, Feasible: true})
	RecordMetrics("t_b", "2026-03-01", "placement", Metrics{Iterations: 100})

	got := GetMetrics("t_a", "2026-03-01")
	require.Len(t, got, 2)
	assert.Equal(t, 800, got["placement"].Iterations)
	assert.Equal(t, 400, got["placement-plan"].Iterations)

	assert.Empty(t, GetMetrics("t_a", "1999-01-01"))
}

func TestSolveScenarioScale(t *testing.T) {
	// Budget sweep over the demo load stays deterministic per seed and never
	// regresses as the budget grows.
	p := demoProblem()
	prev := InfeasibleFitness
	for _, budget := range []int{0, 50, 200, 800} {
		plan, _ := Solve(p, 17, budget)
		if !assert.GreaterOrEqual(t, plan.Scores.Fitness, prev, fmt.Sprintf("budget %d", budget)) {
			break
		}
		prev = plan.Scores.Fitness
	}
}
