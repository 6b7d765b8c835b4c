package nn

import (
	"cmp"
	"fmt"
	"slices"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
)

// NMS performs greedy Non-Maximum Suppression on the boxes of a single class.
//
// Boxes are visited in order of descending score. Equal scores keep their input order.
// Each visited box that has not yet been suppressed is kept, and every remaining box whose
// IoU with it is strictly greater than iouThreshold is suppressed.
//
// Returns the indices (into 'boxes') of the kept boxes, in the order they were selected.
func NMS(boxes []ScoredBox, iouThreshold float32) ([]int, error) {
	if math32.IsNaN(iouThreshold) || iouThreshold < 0 {
		return nil, fmt.Errorf("%w: NMS IoU threshold %v", ErrInvalidArgument, iouThreshold)
	}
	if len(boxes) == 0 {
		return []int{}, nil
	}

	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(boxes[b].Score, boxes[a].Score)
	})

	// Spatial index so that we only compute IoU against boxes that can possibly overlap.
	// The index numbers boxes in the order they are added, which is their input order.
	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(boxes))
	for _, b := range boxes {
		n := b.Box.Normalized()
		fb.Add(n.X1, n.Y1, n.X2, n.Y2)
	}
	fb.Finish()

	// removed is true for boxes that have been kept or suppressed
	removed := make([]bool, len(boxes))
	keep := make([]int, 0, len(boxes))

	for _, i := range order {
		if removed[i] {
			continue
		}
		removed[i] = true
		keep = append(keep, i)

		anchor := boxes[i].Box.Normalized()
		if anchor.Area() == 0 {
			// A zero-area box has an IoU of 0 with everything
			continue
		}
		candidates := fb.Search(anchor.X1, anchor.Y1, anchor.X2, anchor.Y2)
		for _, j := range candidates {
			if removed[j] {
				continue
			}
			if anchor.IOU(boxes[j].Box) > iouThreshold {
				removed[j] = true
			}
		}
	}

	return keep, nil
}

// SelectBoxes returns boxes[i] for each i in indices
func SelectBoxes(boxes []ScoredBox, indices []int) []ScoredBox {
	out := make([]ScoredBox, len(indices))
	for i, idx := range indices {
		out[i] = boxes[idx]
	}
	return out
}
