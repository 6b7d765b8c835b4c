package nn

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Box is an axis-aligned rectangle with corners (X1,Y1) and (X2,Y2).
// A box where X2 < X1 or Y2 < Y1 is malformed, and behaves as though it had zero area.
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

func MakeBox(x1, y1, x2, y2 float32) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (b Box) String() string {
	return fmt.Sprintf("(%.1f,%.1f)-(%.1f,%.1f)", b.X1, b.Y1, b.X2, b.Y2)
}

func (b Box) IsMalformed() bool {
	return b.X2 < b.X1 || b.Y2 < b.Y1
}

// Normalized collapses a malformed extent onto its starting edge, so that the
// result is a valid box of zero width and/or height.
func (b Box) Normalized() Box {
	if b.X2 < b.X1 {
		b.X2 = b.X1
	}
	if b.Y2 < b.Y1 {
		b.Y2 = b.Y1
	}
	return b
}

func (b Box) Width() float32 {
	return math32.Max(0, b.X2-b.X1)
}

func (b Box) Height() float32 {
	return math32.Max(0, b.Y2-b.Y1)
}

func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

func (b Box) Intersection(o Box) Box {
	b = b.Normalized()
	o = o.Normalized()
	x1 := math32.Max(b.X1, o.X1)
	y1 := math32.Max(b.Y1, o.Y1)
	x2 := math32.Min(b.X2, o.X2)
	y2 := math32.Min(b.Y2, o.Y2)
	return Box{
		X1: x1,
		Y1: y1,
		X2: math32.Max(x1, x2),
		Y2: math32.Max(y1, y2),
	}
}

// Intersection over Union.
// Returns 0 when the union is empty (eg two zero-area boxes).
func (b Box) IOU(o Box) float32 {
	inter := b.Intersection(o).Area()
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func (b Box) Center() (float32, float32) {
	n := b.Normalized()
	return (n.X1 + n.X2) / 2, (n.Y1 + n.Y2) / 2
}

// ScoredBox is a box paired with a confidence score in [0, 1]
type ScoredBox struct {
	Box   Box     `json:"box"`
	Score float32 `json:"score"`
}
