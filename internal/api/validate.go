package api

import (
	"fmt"
	"strings"

	"haulplan/internal/model"
)

func validateCars(cars []model.CarIn) error {
	if len(cars) == 0 {
		return fmt.Errorf("cars: at least one car is required")
	}
	for i, c := range cars {
		if c.LengthFt <= 0 {
			return fmt.Errorf("cars[%d]: length_ft must be > 0", i)
		}
		if c.HeightFt <= 0 {
			return fmt.Errorf("cars[%d]: height_ft must be > 0", i)
		}
		if c.WeightLbs <= 0 {
			return fmt.Errorf("cars[%d]: weight_lbs must be > 0", i)
		}
		if c.WidthFt != nil && *c.WidthFt <= 0 {
			return fmt.Errorf("cars[%d]: width_ft must be > 0", i)
		}
		if c.DropOrder != nil && *c.DropOrder < 1 {
			return fmt.Errorf("cars[%d]: drop_order must be >= 1", i)
		}
	}
	return nil
}

func validateSlots(slots []model.SlotIn) error {
	seen := map[string]struct{}{}
	for i, sl := range slots {
		id := strings.TrimSpace(sl.ID)
		if id == "" {
			return fmt.Errorf("slots[%d]: id is required", i)
		}
		if sl.MaxLengthFt <= 0 {
			return fmt.Errorf("slots[%d]: max_length_ft must be > 0", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("slots[%d]: duplicate slot id %q", i, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validatePlacementRequest(req *model.PlacementRequest) error {
	if err := validateCars(req.Cars); err != nil {
		return err
	}
	if req.MaxIters != nil && *req.MaxIters < 0 {
		return fmt.Errorf("max_iters must be >= 0")
	}
	return validateSlots(req.Slots)
}

func validatePlacementPlanRequest(req *model.PlacementPlanRequest) error {
	if err := validateCars(req.Cars); err != nil {
		return err
	}
	if req.MaxIters != nil && *req.MaxIters < 0 {
		return fmt.Errorf("max_iters must be >= 0")
	}
	if req.DeckHeightFt != nil && *req.DeckHeightFt <= 0 {
		return fmt.Errorf("deck_height_ft must be > 0")
	}
	return nil
}
