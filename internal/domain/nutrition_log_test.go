package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAdherence(t *testing.T) {
	target := TargetSnapshot{Calories: 2000, ProteinG: 160}

	cases := []struct {
		name       string
		logged     float64
		wantPct    float64
		wantWithin bool
	}{
		{"exactly on target", 2000, 100, true},
		{"upper edge of the band", 2200, 110, true},
		{"lower edge of the band", 1800, 90, true},
		{"just over", 2201, 110.1, false},
		{"well under", 1500, 75, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := ComputeAdherence(tc.logged, target)
			assert.Equal(t, tc.wantPct, a.CaloriePct)
			assert.Equal(t, tc.wantWithin, a.WithinTarget)
		})
	}
}

func TestComputeAdherence_ZeroTarget(t *testing.T) {
	a := ComputeAdherence(1800, TargetSnapshot{})
	assert.Zero(t, a.CaloriePct)
	assert.False(t, a.WithinTarget)
}
