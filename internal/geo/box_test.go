package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestProximityBound(t *testing.T) {
	b := ProximityBound(10, 20)
	assert.InDelta(t, 9.9998, b.Min.Lon(), 1e-12)
	assert.InDelta(t, 19.9998, b.Min.Lat(), 1e-12)
	assert.InDelta(t, 10.0002, b.Max.Lon(), 1e-12)
	assert.InDelta(t, 20.0002, b.Max.Lat(), 1e-12)
}

func TestProximityBound_Contains(t *testing.T) {
	c := orb.Point{10, 20}

	tests := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"same point", orb.Point{10, 20}, true},
		{"inside both axes", orb.Point{10.00005, 20.00005}, true},
		{"just inside corner", orb.Point{10.00019, 19.99981}, true},
		{"longitude outside", orb.Point{10.00021, 20}, false},
		{"latitude outside", orb.Point{10, 19.99979}, false},
		{"far away", orb.Point{-10, -20}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProximityBound(c.Lon(), c.Lat()).Contains(tt.p))
		})
	}
}
