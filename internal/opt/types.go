package opt

// Car is a normalized vehicle record ready for placement.
type Car struct {
	ID        string
	LengthFt  float64
	WidthFt   float64
	HeightFt  float64
	WeightLbs float64
	DropOrder int // 1 = first drop, larger = later drops
}

// Slot is one physical position on the trailer.
type Slot struct {
	ID             string
	Deck           string // TOP / BOTTOM / HEADRACK etc.
	PositionRank   int    // 1 = easiest egress, larger = harder
	MaxLengthFt    float64
	MaxWidthFt     float64
	MaxHeightFt    float64
	HeightMarginFt float64            // extra headroom via tilt/ramps
	AdjustmentCost float64            // ops cost to set ramps/tilts
	AxleInfluence  map[string]float64 // fraction of car weight borne by each axle group
}

// Rig bounds the whole combination.
type Rig struct {
	MaxHeightFt   float64
	MaxLengthFt   float64
	MaxWidthFt    float64
	AxleLimitsLbs map[string]float64
	EmptyAxleLbs  map[string]float64
}

type Assignment struct {
	CarID  string
	SlotID string
}

// Problem is a fully normalized placement instance. Callers resolve all
// optional input fields before building one; the engine never re-defaults.
type Problem struct {
	Cars  []Car
	Slots []Slot
	Rig   Rig
}

// Scores is the diagnostic breakdown for an assignment. Recomputed from
// scratch for every candidate; never incrementally maintained.
type Scores struct {
	Fitness       float64
	UnloadMoves   float64
	AxleMaxPct    float64
	HeightPenalty float64
	AdjCost       float64
}

// Plan is the outcome of a placement run.
type Plan struct {
	Assignments []Assignment
	Scores      Scores
	Warnings    []string
	Feasible    bool
}

// Metrics captures search telemetry for the admin metrics endpoint.
type Metrics struct {
	Iterations   int
	SwapsTried   int
	Improvements int
	BaseFitness  float64
	BestFitness  float64
	Feasible     bool
}
