package opt

import "haulplan/internal/model"

// Wire-to-engine normalization. The HTTP layer and stored rig profiles both
// resolve partial input here so defaults stay in one place.

// RigSpecFromInput merges caller overrides onto the default rig. Overrides
// are pointers, so an explicit zero wins; axle maps replace wholesale.
func RigSpecFromInput(in *model.RigIn) model.RigSpec {
	d := DefaultRig()
	return MergeRigSpec(model.RigSpec{
		MaxHeightFt:   d.MaxHeightFt,
		MaxLengthFt:   d.MaxLengthFt,
		MaxWidthFt:    d.MaxWidthFt,
		AxleLimitsLbs: d.AxleLimitsLbs,
		EmptyAxleLbs:  d.EmptyAxleLbs,
	}, in)
}

// MergeRigSpec applies overrides onto an existing spec, typically one loaded
// from a stored rig profile.
func MergeRigSpec(base model.RigSpec, in *model.RigIn) model.RigSpec {
	if in == nil {
		return base
	}
	if in.MaxHeightFt != nil {
		base.MaxHeightFt = *in.MaxHeightFt
	}
	if in.MaxLengthFt != nil {
		base.MaxLengthFt = *in.MaxLengthFt
	}
	if in.MaxWidthFt != nil {
		base.MaxWidthFt = *in.MaxWidthFt
	}
	if len(in.AxleLimitsLbs) > 0 {
		base.AxleLimitsLbs = in.AxleLimitsLbs
	}
	if len(in.EmptyAxleLbs) > 0 {
		base.EmptyAxleLbs = in.EmptyAxleLbs
	}
	return base
}

// SlotSpecsFromInput normalizes a caller catalog; an empty catalog yields
// the stock nine-slot layout. Slot ID and max_length_ft are validated
// upstream, everything else defaults.
func SlotSpecsFromInput(in []model.SlotIn) []model.SlotSpec {
	if len(in) == 0 {
		return DefaultSlotSpecs()
	}
	out := make([]model.SlotSpec, 0, len(in))
	for _, s := range in {
		sp := model.SlotSpec{
			ID:             s.ID,
			Deck:           s.Deck,
			PositionRank:   DefaultSlotRank,
			MaxLengthFt:    s.MaxLengthFt,
			MaxWidthFt:     DefaultSlotMaxWidthFt,
			MaxHeightFt:    DefaultSlotMaxHeightFt,
			HeightMarginFt: DefaultSlotMarginFt,
			AdjustmentCost: DefaultSlotAdjustCost,
			AxleInfluence:  DefaultAxleInfluence(),
		}
		if sp.Deck == "" {
			sp.Deck = "TOP"
		}
		if s.PositionRank != nil {
			sp.PositionRank = *s.PositionRank
		}
		if s.MaxWidthFt != nil {
			sp.MaxWidthFt = *s.MaxWidthFt
		}
		if s.MaxHeightFt != nil {
			sp.MaxHeightFt = *s.MaxHeightFt
		}
		if s.HeightMarginFt != nil {
			sp.HeightMarginFt = *s.HeightMarginFt
		}
		if s.AdjustmentCost != nil {
			sp.AdjustmentCost = *s.AdjustmentCost
		}
		if len(s.AxleInfluence) > 0 {
			sp.AxleInfluence = s.AxleInfluence
		}
		out = append(out, sp)
	}
	return out
}

// DefaultSlotSpecs is DefaultSlots9 in wire form, used when a rig profile
// is saved without a catalog.
func DefaultSlotSpecs() []model.SlotSpec {
	slots := DefaultSlots9()
	out := make([]model.SlotSpec, 0, len(slots))
	for _, s := range slots {
		out = append(out, model.SlotSpec{
			ID:             s.ID,
			Deck:           s.Deck,
			PositionRank:   s.PositionRank,
			MaxLengthFt:    s.MaxLengthFt,
			MaxWidthFt:     s.MaxWidthFt,
			MaxHeightFt:    s.MaxHeightFt,
			HeightMarginFt: s.HeightMarginFt,
			AdjustmentCost: s.AdjustmentCost,
			AxleInfluence:  s.AxleInfluence,
		})
	}
	return out
}

// RigFromSpec projects a stored rig spec onto the engine type.
func RigFromSpec(s model.RigSpec) Rig {
	return Rig{
		MaxHeightFt:   s.MaxHeightFt,
		MaxLengthFt:   s.MaxLengthFt,
		MaxWidthFt:    s.MaxWidthFt,
		AxleLimitsLbs: s.AxleLimitsLbs,
		EmptyAxleLbs:  s.EmptyAxleLbs,
	}
}

// SlotsFromSpec projects stored slot specs onto the engine type.
func SlotsFromSpec(ss []model.SlotSpec) []Slot {
	out := make([]Slot, 0, len(ss))
	for _, s := range ss {
		out = append(out, Slot{
			ID:             s.ID,
			Deck:           s.Deck,
			PositionRank:   s.PositionRank,
			MaxLengthFt:    s.MaxLengthFt,
			MaxWidthFt:     s.MaxWidthFt,
			MaxHeightFt:    s.MaxHeightFt,
			HeightMarginFt: s.HeightMarginFt,
			AdjustmentCost: s.AdjustmentCost,
			AxleInfluence:  s.AxleInfluence,
		})
	}
	return out
}
