package nn

import (
	"fmt"
	"time"
)

// Detector runs the forward pass of an object detection network.
//
// DetectBatch is given a batch of images, and returns the raw class scores and per-class box
// regressions for every image, along with the wall-clock time of the forward pass alone
// (image decoding and any other preparation must not be included).
// Repeated calls with the same images must produce the same scores and boxes.
type Detector interface {
	DetectBatch(images []ImageCrop) (*BatchOutput, error)
}

// DetectorFunc adapts an ordinary function to the Detector interface
type DetectorFunc func(images []ImageCrop) (*BatchOutput, error)

func (f DetectorFunc) DetectBatch(images []ImageCrop) (*BatchOutput, error) {
	return f(images)
}

// BatchOutput is the result of running a batch of images through a Detector
type BatchOutput struct {
	Images  []ImageOutput // One element per input image, in the same order
	Elapsed time.Duration // Forward-pass time of the whole batch
}

// Validate checks that the output matches a batch of 'batchSize' images
func (b *BatchOutput) Validate(batchSize int) error {
	if b == nil {
		return fmt.Errorf("%w: nil output", ErrDetectorFailure)
	}
	if len(b.Images) != batchSize {
		return fmt.Errorf("%w: %v outputs for a batch of %v images", ErrDetectorFailure, len(b.Images), batchSize)
	}
	if b.Elapsed < 0 {
		return fmt.Errorf("%w: negative elapsed time %v", ErrDetectorFailure, b.Elapsed)
	}
	for i := range b.Images {
		if err := b.Images[i].Validate(); err != nil {
			return fmt.Errorf("image %v: %w", i, err)
		}
	}
	return nil
}

// ImageOutput holds the raw detector output for one image.
// Scores is [numBoxes][numClasses], and Boxes is [numBoxes][4*numClasses], where
// Boxes[i][4*c : 4*c+4] is the (x1, y1, x2, y2) regression of box i for class c.
// Class 0 is the background class.
type ImageOutput struct {
	Scores [][]float32 `json:"scores"`
	Boxes  [][]float32 `json:"boxes"`
}

func (o *ImageOutput) NumBoxes() int {
	return len(o.Scores)
}

// NumClasses includes the background class
func (o *ImageOutput) NumClasses() int {
	if len(o.Scores) == 0 {
		return 0
	}
	return len(o.Scores[0])
}

// Validate checks that Scores and Boxes have consistent dimensions
func (o *ImageOutput) Validate() error {
	if len(o.Boxes) != len(o.Scores) {
		return fmt.Errorf("%w: %v score rows but %v box rows", ErrDetectorFailure, len(o.Scores), len(o.Boxes))
	}
	nclass := o.NumClasses()
	for i := range o.Scores {
		if len(o.Scores[i]) != nclass {
			return fmt.Errorf("%w: score row %v has %v classes, expected %v", ErrDetectorFailure, i, len(o.Scores[i]), nclass)
		}
		if len(o.Boxes[i]) != 4*nclass {
			return fmt.Errorf("%w: box row %v has %v coordinates, expected %v", ErrDetectorFailure, i, len(o.Boxes[i]), 4*nclass)
		}
	}
	return nil
}

// ClassScores returns the score column of class c
func (o *ImageOutput) ClassScores(c int) []float32 {
	scores := make([]float32, len(o.Scores))
	for i, row := range o.Scores {
		scores[i] = row[c]
	}
	return scores
}

// ClassBoxes returns the box regressions of class c
func (o *ImageOutput) ClassBoxes(c int) []Box {
	boxes := make([]Box, len(o.Boxes))
	for i, row := range o.Boxes {
		r := row[4*c : 4*c+4]
		boxes[i] = Box{X1: r[0], Y1: r[1], X2: r[2], Y2: r[3]}
	}
	return boxes
}

// ClassScoredBoxes pairs up ClassBoxes(c) and ClassScores(c)
func (o *ImageOutput) ClassScoredBoxes(c int) []ScoredBox {
	scores := o.ClassScores(c)
	boxes := o.ClassBoxes(c)
	out := make([]ScoredBox, len(scores))
	for i := range scores {
		out[i] = ScoredBox{Box: boxes[i], Score: scores[i]}
	}
	return out
}

// Warmup runs the detector 'n' times on 'img', and discards the results.
// The first few runs of a network are often much slower than the rest (device context setup,
// kernel autotuning, etc), so callers do this before they start measuring.
func Warmup(det Detector, img ImageCrop, n int) error {
	for i := 0; i < n; i++ {
		if _, err := det.DetectBatch([]ImageCrop{img}); err != nil {
			return fmt.Errorf("warmup run %v: %w: %w", i, ErrDetectorFailure, err)
		}
	}
	return nil
}
