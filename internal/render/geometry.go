package render

import (
	"fmt"
	"math"
)

// Dimensions is a frame size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Rect is a crop rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Oriented returns the display dimensions for a stream rotated by degrees.
// Quarter turns swap width and height.
func Oriented(width, height, degrees int) Dimensions {
	switch ((degrees % 360) + 360) % 360 {
	case 90, 270:
		return Dimensions{Width: height, Height: width}
	default:
		return Dimensions{Width: width, Height: height}
	}
}

// ScaleToMinimum upscales d uniformly so its short side equals minShort. The
// long side is rounded to the nearest even value. ok is false when no scaling
// is needed.
func ScaleToMinimum(d Dimensions, minShort int) (Dimensions, bool) {
	short := min(d.Width, d.Height)
	if minShort <= 0 || short <= 0 || short >= minShort {
		return d, false
	}
	factor := float64(minShort) / float64(short)
	if d.Width <= d.Height {
		return Dimensions{Width: minShort, Height: nearestEven(float64(d.Height) * factor)}, true
	}
	return Dimensions{Width: nearestEven(float64(d.Width) * factor), Height: minShort}, true
}

// CenterCrop returns the largest centered rectangle of ratio rw:rh that fits
// inside d with even dimensions. ok is false when the frame already has the
// requested shape.
func CenterCrop(d Dimensions, rw, rh int) (Rect, bool) {
	if rw <= 0 || rh <= 0 || d.Width <= 0 || d.Height <= 0 {
		return Rect{}, false
	}
	target := float64(rw) / float64(rh)
	current := float64(d.Width) / float64(d.Height)
	w, h := d.Width, d.Height
	if current > target {
		w = fitEven(float64(d.Height)*target, d.Width)
		h = evenFloor(d.Height)
	} else {
		w = evenFloor(d.Width)
		h = fitEven(float64(d.Width)/target, d.Height)
	}
	if w == d.Width && h == d.Height {
		return Rect{}, false
	}
	return Rect{X: (d.Width - w) / 2, Y: (d.Height - h) / 2, Width: w, Height: h}, true
}

func nearestEven(v float64) int {
	return int(math.Round(v/2)) * 2
}

// fitEven rounds v to the nearest even value without exceeding limit.
func fitEven(v float64, limit int) int {
	n := nearestEven(v)
	if n > limit {
		n = evenFloor(limit)
	}
	return max(2, n)
}

func evenFloor(v int) int {
	return v - v%2
}
