package facegeom

// BBox is a face bounding box [x1, y1, x2, y2] in image-relative
// coordinates (0-1). X1 < X2 and Y1 < Y2 for any valid box.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Valid reports whether the box is non-degenerate and within the unit square.
func (b BBox) Valid() bool {
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return false
	}
	if b.X1 < 0 || b.Y1 < 0 || b.X2 > 1 || b.Y2 > 1 {
		return false
	}
	return true
}

// Area returns the relative area of the box.
func (b BBox) Area() float64 {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return 0
	}
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// FromPixels converts a pixel bounding box [x1, y1, x2, y2] to relative
// coordinates. Returns a zero box if the dimensions are not positive.
func FromPixels(x1, y1, x2, y2 float64, width, height int) BBox {
	if width <= 0 || height <= 0 {
		return BBox{}
	}
	return BBox{
		X1: x1 / float64(width),
		Y1: y1 / float64(height),
		X2: x2 / float64(width),
		Y2: y2 / float64(height),
	}
}

// IoU calculates Intersection over Union between two bounding boxes
// in the same coordinate system.
func IoU(a, b BBox) float64 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
