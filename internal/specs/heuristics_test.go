package specs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	cases := []struct {
		mk, mdl string
		want    string
	}{
		{"Ford", "F-150", "pickup"},
		{"Chevrolet", "Silverado 1500", "pickup"},
		{"Ram", "1500", "pickup"},
		{"Honda", "CR-V", "suv"},
		{"Tesla", "Model Y", "suv"},
		{"Mazda", "CX-5", "suv"},
		{"Honda", "Civic", "sedan"},
		{"Tesla", "Model 3", "sedan"},
		{"Land Rover", "Defender", "sedan"}, // no token match falls to default
		{"Acme", "Widget", "sedan"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, segment(tc.mk, tc.mdl), "%s %s", tc.mk, tc.mdl)
	}
}

func TestEstimateSpecs(t *testing.T) {
	spec := EstimateSpecs(2021, "Ford", "F-150")
	require.NotNil(t, spec.HeightFt)
	require.NotNil(t, spec.WeightLbs)
	assert.InDelta(t, 6.3, *spec.HeightFt, 1e-9)
	assert.InDelta(t, 4800, *spec.WeightLbs, 1e-9)
	assert.Equal(t, "estimate", spec.Source)
	assert.Equal(t, "segment-based (pickup)", spec.Notes)

	spec = EstimateSpecs(2020, "Toyota", "RAV4")
	assert.InDelta(t, 5.7, *spec.HeightFt, 1e-9)
	assert.InDelta(t, 3950, *spec.WeightLbs, 1e-9)

	spec = EstimateSpecs(2015, "Acme", "Widget")
	assert.InDelta(t, 4.8, *spec.HeightFt, 1e-9)
	assert.InDelta(t, 3200, *spec.WeightLbs, 1e-9)
	assert.Equal(t, "segment-based (sedan)", spec.Notes)
	assert.Nil(t, spec.LengthFt)
}
