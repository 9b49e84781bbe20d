package opt

// Engine defaults. Callers that accept partial input resolve against these
// before building a Problem.
const (
	DefaultMaxIters = 800
	DefaultSeed     = 17

	DefaultCarWidthFt = 6.2

	DefaultSlotRank        = 5
	DefaultSlotMaxWidthFt  = 7.2
	DefaultSlotMaxHeightFt = 6.0
	DefaultSlotMarginFt    = 0.4
	DefaultSlotAdjustCost  = 1.0
)

// DefaultAxleInfluence is the mid-trailer weight split used when a custom
// slot omits its own.
func DefaultAxleInfluence() map[string]float64 {
	return map[string]float64{"steer": 0.12, "drive": 0.48, "trailer": 0.40}
}

// DefaultRig is a conservative 9-car rig profile.
func DefaultRig() Rig {
	return Rig{
		MaxHeightFt:   13.5,
		MaxLengthFt:   75.0,
		MaxWidthFt:    8.5,
		AxleLimitsLbs: map[string]float64{"steer": 12000, "drive": 34000, "trailer": 34000},
		EmptyAxleLbs:  map[string]float64{"steer": 9500, "drive": 18000, "trailer": 12000},
	}
}

// DefaultSlots9 is a nine-slot catalog with rough egress ranks
// (lower rank = easier to unload).
func DefaultSlots9() []Slot {
	return []Slot{
		{ID: "T1_HEAD", Deck: "TOP", PositionRank: 2, MaxLengthFt: 16.5, MaxWidthFt: 7.2, MaxHeightFt: 6.0, HeightMarginFt: 0.5, AdjustmentCost: 1.0,
			AxleInfluence: map[string]float64{"steer": 0.18, "drive": 0.52, "trailer": 0.30}},
		{ID: "T2_FRONT", Deck: "TOP", PositionRank: 3, MaxLengthFt: 16.5, MaxWidthFt: 7.2, MaxHeightFt: 6.0, HeightMarginFt: 0.5, AdjustmentCost: 1.0,
			AxleInfluence: map[string]float64{"steer": 0.16, "drive": 0.50, "trailer": 0.34}},
		{ID: "T3_MID", Deck: "TOP", PositionRank: 5, MaxLengthFt: 16.5, MaxWidthFt: 7.2, MaxHeightFt: 6.0, HeightMarginFt: 0.4, AdjustmentCost: 1.1,
			AxleInfluence: map[string]float64{"steer": 0.12, "drive": 0.48, "trailer": 0.40}},
		{ID: "T4_REAR", Deck: "TOP", PositionRank: 7, MaxLengthFt: 16.5, MaxWidthFt: 7.2, MaxHeightFt: 6.0, HeightMarginFt: 0.4, AdjustmentCost: 1.2,
			AxleInfluence: map[string]float64{"steer": 0.10, "drive": 0.45, "trailer": 0.45}},
		{ID: "B1_FRONT", Deck: "BOTTOM", PositionRank: 1, MaxLengthFt: 17.0, MaxWidthFt: 7.5, MaxHeightFt: 6.2, HeightMarginFt: 0.6, AdjustmentCost: 0.6,
			AxleInfluence: map[string]float64{"steer": 0.20, "drive": 0.55, "trailer": 0.25}},
		{ID: "B2_MID", Deck: "BOTTOM", PositionRank: 4, MaxLengthFt: 17.0, MaxWidthFt: 7.5, MaxHeightFt: 6.2, HeightMarginFt: 0.5, AdjustmentCost: 0.5,
			AxleInfluence: map[string]float64{"steer": 0.14, "drive": 0.50, "trailer": 0.36}},
		{ID: "B3_REAR", Deck: "BOTTOM", PositionRank: 6, MaxLengthFt: 17.0, MaxWidthFt: 7.5, MaxHeightFt: 6.2, HeightMarginFt: 0.5, AdjustmentCost: 0.5,
			AxleInfluence: map[string]float64{"steer": 0.10, "drive": 0.45, "trailer": 0.45}},
		{ID: "B4_REAR2", Deck: "BOTTOM", PositionRank: 8, MaxLengthFt: 16.8, MaxWidthFt: 7.5, MaxHeightFt: 6.2, HeightMarginFt: 0.5, AdjustmentCost: 0.5,
			AxleInfluence: map[string]float64{"steer": 0.08, "drive": 0.40, "trailer": 0.52}},
		{ID: "B5_TAIL", Deck: "BOTTOM", PositionRank: 9, MaxLengthFt: 16.2, MaxWidthFt: 7.5, MaxHeightFt: 6.2, HeightMarginFt: 0.5, AdjustmentCost: 0.5,
			AxleInfluence: map[string]float64{"steer": 0.06, "drive": 0.36, "trailer": 0.58}},
	}
}
