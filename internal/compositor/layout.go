package compositor

import (
	"fmt"
	"math"
)

// PointsPerCentimeter converts centimeters to PDF points.
const PointsPerCentimeter = 28.3465

// Geometry is the fixed layout of the cover spread.
type Geometry struct {
	BleedX      float64 `yaml:"bleed_x"`
	BleedY      float64 `yaml:"bleed_y"`
	ImageWidth  float64 `yaml:"image_width"`
	ImageHeight float64 `yaml:"image_height"`

	LeftInset   float64 `yaml:"left_inset"`   // from BleedX to the left slot
	BottomInset float64 `yaml:"bottom_inset"` // from BleedY to both slots
	SpreadGap   float64 `yaml:"spread_gap"`   // from the end of the first image width to the right slot

	TemplatePage int `yaml:"template_page"`
	BackPage     int `yaml:"back_page"`  // drawn in the left slot
	FrontPage    int `yaml:"front_page"` // drawn in the right slot
}

// DefaultGeometry returns the production cover layout.
func DefaultGeometry() Geometry {
	return Geometry{
		BleedX:      54,
		BleedY:      155.90575, // 5.5cm
		ImageWidth:  597.525,
		ImageHeight: 612.525,

		LeftInset:   13,
		BottomInset: 10,
		SpreadGap:   32,

		TemplatePage: 0,
		BackPage:     16,
		FrontPage:    0,
	}
}

// Placement is a rectangle on the output page, in points with the
// origin at the bottom left.
type Placement struct {
	X, Y, Width, Height float64
}

// Overlaps reports whether p and o share any area.
func (p Placement) Overlaps(o Placement) bool {
	return p.X < o.X+o.Width && o.X < p.X+p.Width &&
		p.Y < o.Y+o.Height && o.Y < p.Y+p.Height
}

func (p Placement) String() string {
	return fmt.Sprintf("{x:%g y:%g w:%g h:%g}", p.X, p.Y, p.Width, p.Height)
}

func (p Placement) valid() bool {
	for _, v := range []float64{p.X, p.Y, p.Width, p.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.Width > 0 && p.Height > 0
}

// Placements returns the left (back) and right (front) slots.
func (g Geometry) Placements() (left, right Placement) {
	y := g.BleedY + g.BottomInset
	left = Placement{
		X:      g.BleedX + g.LeftInset,
		Y:      y,
		Width:  g.ImageWidth,
		Height: g.ImageHeight,
	}
	right = Placement{
		X:      g.BleedX + g.ImageWidth + g.SpreadGap,
		Y:      y,
		Width:  g.ImageWidth,
		Height: g.ImageHeight,
	}
	return left, right
}

// RequiredSourcePages is the smallest page count a source can have.
func (g Geometry) RequiredSourcePages() int {
	return max(g.BackPage, g.FrontPage) + 1
}

// Validate rejects geometry that cannot produce two separate slots.
func (g Geometry) Validate() error {
	left, right := g.Placements()
	if !left.valid() || !right.valid() {
		return fmt.Errorf("geometry: image size must be positive and finite, got %gx%g", g.ImageWidth, g.ImageHeight)
	}
	if right.X < left.X+left.Width {
		return fmt.Errorf("geometry: right slot %v overlaps left slot %v", right, left)
	}
	if g.TemplatePage < 0 || g.BackPage < 0 || g.FrontPage < 0 {
		return fmt.Errorf("geometry: page indices must not be negative")
	}
	return nil
}
