package annotation

import (
	"fmt"
	"image"
	"math"
)

// DefaultMinSize is the smallest width and height, in percent, a region must
// have to be stored.
const DefaultMinSize = 0.5

// tolerance absorbs float noise from percent conversions.
const tolerance = 1e-9

// Region is a rectangle in percent of page width/height, top-left origin.
type Region struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func (r Region) String() string {
	return fmt.Sprintf("(%.2f%%,%.2f%% %.2fx%.2f%%)", r.X, r.Y, r.Width, r.Height)
}

// RegionFromPoints returns the normalized bounding box of two percent points,
// clamped to the page.
func RegionFromPoints(x0, y0, x1, y1 float64) Region {
	x0, x1 = clampPercent(x0), clampPercent(x1)
	y0, y1 = clampPercent(y0), clampPercent(y1)
	return Region{
		X:      math.Min(x0, x1),
		Y:      math.Min(y0, y1),
		Width:  math.Abs(x1 - x0),
		Height: math.Abs(y1 - y0),
	}
}

// Clamp intersects r with the page.
func (r Region) Clamp() Region {
	return RegionFromPoints(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Validate checks that r lies within the page and has positive area.
func (r Region) Validate() error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in %s", ErrInvalidRegion, r)
		}
	}
	switch {
	case r.X < 0 || r.Y < 0:
		return fmt.Errorf("%w: negative origin %s", ErrInvalidRegion, r)
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("%w: empty region %s", ErrInvalidRegion, r)
	case r.X+r.Width > 100+tolerance || r.Y+r.Height > 100+tolerance:
		return fmt.Errorf("%w: region %s exceeds the page", ErrInvalidRegion, r)
	}
	return nil
}

// MeetsMinimum reports whether both sides of r are at least minSize percent.
func (r Region) MeetsMinimum(minSize float64) bool {
	return r.Width+tolerance >= minSize && r.Height+tolerance >= minSize
}

// Pixels maps r onto a raster of the given pixel size. Edges are rounded
// independently so adjacent regions share boundaries.
func (r Region) Pixels(width, height int) image.Rectangle {
	w, h := float64(width), float64(height)
	return image.Rect(
		int(math.Round(r.X*w/100)),
		int(math.Round(r.Y*h/100)),
		int(math.Round((r.X+r.Width)*w/100)),
		int(math.Round((r.Y+r.Height)*h/100)),
	).Intersect(image.Rect(0, 0, width, height))
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
