package specs

import (
	"fmt"
	"strings"

	"haulplan/internal/model"
)

// Last-resort segment estimates for when no catalog can provide specs.
// Token tables map well-known model names to a body segment.

var pickupTokens = []string{
	"F-150", "F150", "SILVERADO", "SIERRA", "RAM", "TACOMA", "TUNDRA", "RANGER",
	"COLORADO", "CANYON", "FRONTIER", "RIDGELINE", "TITAN",
}

var suvTokens = []string{
	"CR-V", "CRV", "RAV4", "HIGHLANDER", "4RUNNER", "EXPLORER", "ESCAPE", "EDGE",
	"ROGUE", "PATHFINDER", "OUTBACK", "FORESTER", "PILOT", "CX-5", "CX5", "CX-9", "CX9",
	"SORENTO", "TELLURIDE", "TAHOE", "SUBURBAN", "EXPEDITION", "GLC", "GLA", "Q5", "X3", "X5", "MODEL Y",
}

var sedanTokens = []string{
	"CIVIC", "COROLLA", "CAMRY", "ACCORD", "ALTIMA", "ELANTRA", "SONATA", "MODEL 3", "MODEL S",
}

func segment(mk, mdl string) string {
	m := strings.ToUpper(mk + " " + mdl)
	for _, tok := range pickupTokens {
		if strings.Contains(m, tok) {
			return "pickup"
		}
	}
	for _, tok := range suvTokens {
		if strings.Contains(m, tok) {
			return "suv"
		}
	}
	for _, tok := range sedanTokens {
		if strings.Contains(m, tok) {
			return "sedan"
		}
	}
	// sedans dominate the general fleet
	return "sedan"
}

// EstimateSpecs guesses height and curb weight from the vehicle's segment.
// It always produces a value, so it terminates every resolver chain.
func EstimateSpecs(year int, mk, mdl string) model.VehicleSpecs {
	seg := segment(mk, mdl)
	height, weight := 4.8, 3200.0
	switch seg {
	case "pickup":
		height, weight = 6.3, 4800
	case "suv":
		height, weight = 5.7, 3950
	}
	return model.VehicleSpecs{
		HeightFt:  &height,
		WeightLbs: &weight,
		Source:    "estimate",
		Notes:     fmt.Sprintf("segment-based (%s)", seg),
	}
}
