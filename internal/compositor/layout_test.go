package compositor

import (
	"math"
	"testing"
)

func TestDefaultPlacements(t *testing.T) {
	left, right := DefaultGeometry().Placements()

	tests := []struct {
		name     string
		got      Placement
		expected Placement
	}{
		{"left", left, Placement{X: 67, Y: 165.90575, Width: 597.525, Height: 612.525}},
		{"right", right, Placement{X: 683.525, Y: 165.90575, Width: 597.525, Height: 612.525}},
	}
	for _, tt := range tests {
		if !near(tt.got, tt.expected) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, tt.got)
		}
	}

	if left.Overlaps(right) {
		t.Error("default slots overlap")
	}
}

func TestBleedIsFiveAndAHalfCentimeters(t *testing.T) {
	if got := 5.5 * PointsPerCentimeter; math.Abs(got-DefaultGeometry().BleedY) > 1e-9 {
		t.Errorf("expected 5.5cm to be %v points, got %v", DefaultGeometry().BleedY, got)
	}
}

func TestRequiredSourcePages(t *testing.T) {
	if n := DefaultGeometry().RequiredSourcePages(); n != 17 {
		t.Errorf("expected 17, got %d", n)
	}
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name   string
		change func(*Geometry)
		valid  bool
	}{
		{"default", func(*Geometry) {}, true},
		{"no gap", func(g *Geometry) { g.SpreadGap = g.LeftInset }, true},
		{"overlap", func(g *Geometry) { g.SpreadGap = 0 }, false},
		{"zero width", func(g *Geometry) { g.ImageWidth = 0 }, false},
		{"negative height", func(g *Geometry) { g.ImageHeight = -1 }, false},
		{"infinite", func(g *Geometry) { g.BleedX = math.Inf(1) }, false},
		{"negative page", func(g *Geometry) { g.BackPage = -1 }, false},
	}

	for _, tt := range tests {
		g := DefaultGeometry()
		tt.change(&g)
		err := g.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestPlacementOverlaps(t *testing.T) {
	a := Placement{X: 0, Y: 0, Width: 10, Height: 10}
	tests := []struct {
		b        Placement
		overlaps bool
	}{
		{Placement{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{Placement{X: 10, Y: 0, Width: 10, Height: 10}, false},
		{Placement{X: 0, Y: 20, Width: 10, Height: 10}, false},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.b); got != tt.overlaps {
			t.Errorf("%v and %v: expected overlap %v, got %v", a, tt.b, tt.overlaps, got)
		}
	}
}
