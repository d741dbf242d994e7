package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalQuantity(t *testing.T) {
	tests := []struct {
		name                        string
		cartons, perCarton, singles int64
		want                        int64
	}{
		{"packed", 2, 12, 0, 24},
		{"packed with singles", 3, 12, 5, 41},
		{"zero per carton counts as one", 4, 0, 1, 5},
		{"negative per carton counts as one", 4, -6, 0, 4},
		{"negative cartons clamp", -3, 12, 7, 7},
		{"negative singles clamp", 1, 12, -7, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalQuantity(tt.cartons, tt.perCarton, tt.singles))
		})
	}
}

func TestNormalizePacking(t *testing.T) {
	tests := []struct {
		name                        string
		cartons, perCarton, singles int64
		wantCartons, wantSingles    int64
	}{
		{"overflow folds into cartons", 0, 12, 15, 1, 3},
		{"exact multiple", 2, 12, 24, 4, 0},
		{"below one carton unchanged", 5, 12, 11, 5, 11},
		{"zero per carton unchanged", 5, 0, 40, 5, 40},
		{"negative singles clamp", 1, 12, -1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := NormalizePacking(tt.cartons, tt.perCarton, tt.singles)
			assert.Equal(t, tt.wantCartons, c)
			assert.Equal(t, tt.wantSingles, s)
		})
	}
}

func TestNormalizePackingPreservesTotal(t *testing.T) {
	for per := int64(1); per <= 24; per++ {
		for singles := int64(0); singles < 100; singles++ {
			c, s := NormalizePacking(3, per, singles)
			assert.Equal(t, TotalQuantity(3, per, singles), TotalQuantity(c, per, s))
			assert.Less(t, s, per)
		}
	}
}

func TestDecompose(t *testing.T) {
	c, s := Decompose(26, 12)
	assert.Equal(t, int64(2), c)
	assert.Equal(t, int64(2), s)

	c, s = Decompose(5, 0)
	assert.Equal(t, int64(0), c)
	assert.Equal(t, int64(5), s)

	c, s = Decompose(-4, 12)
	assert.Zero(t, c)
	assert.Zero(t, s)
}

func TestPackingTotal(t *testing.T) {
	p := Packing{Cartons: 1, PerCarton: DefaultPerCarton, Singles: 3}
	assert.Equal(t, int64(15), p.Total())
	assert.Equal(t, int64(3), Packing{Cartons: -2, PerCarton: 12, Singles: 3}.Total())
}
