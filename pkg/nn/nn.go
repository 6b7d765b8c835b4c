package nn

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chewxy/math32"
)

// Package nn is the object detection layer of the benchmark.
// The forward pass itself is hidden behind the Detector interface. Everything in
// here that runs after the forward pass (IoU, NMS, per-class post-processing) is pure Go.

const DefaultProbabilityThreshold = 0.8
const DefaultNmsIouThreshold = 0.3

// NN object detection parameters
type DetectionParams struct {
	ProbabilityThreshold float32 `json:"probabilityThreshold"` // Value between 0 and 1. Detections below this are dropped when filtering.
	NmsIouThreshold      float32 `json:"nmsIouThreshold"`      // Value between 0 and 1. Lower values will merge more objects together into one.
}

// Create a default DetectionParams object
func NewDetectionParams() *DetectionParams {
	return &DetectionParams{
		ProbabilityThreshold: DefaultProbabilityThreshold,
		NmsIouThreshold:      DefaultNmsIouThreshold,
	}
}

// Validate returns an ErrInvalidArgument error if either threshold is outside [0, 1]
func (p *DetectionParams) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil detection params", ErrInvalidArgument)
	}
	if !inUnitRange(p.ProbabilityThreshold) {
		return fmt.Errorf("%w: probability threshold %v is outside [0,1]", ErrInvalidArgument, p.ProbabilityThreshold)
	}
	if !inUnitRange(p.NmsIouThreshold) {
		return fmt.Errorf("%w: NMS IoU threshold %v is outside [0,1]", ErrInvalidArgument, p.NmsIouThreshold)
	}
	return nil
}

func inUnitRange(v float32) bool {
	return !math32.IsNaN(v) && v >= 0 && v <= 1
}

// ImageCrop is a crop of an image.
// In C we would represent this as a pointer and a stride, but since that's not memory safe,
// we must resort to this kind of thing.
// To create an ImageCrop, start with WholeImage(), and then use Crop() to get a sub-crop.
type ImageCrop struct {
	NChan       int    // Number of channels (eg 3 for RGB)
	Pixels      []byte // The whole image
	ImageWidth  int    // The width of the original image, held in Pixels
	ImageHeight int    // The height of the original image, held in Pixels
	CropX       int    // Origin of crop X
	CropY       int    // Origin of crop Y
	CropWidth   int    // The width of this crop
	CropHeight  int    // The height of this crop
}

func (c ImageCrop) Stride() int {
	return c.ImageWidth * c.NChan
}

// Return a crop of the crop (new crop is relative to existing).
// If any parameter is out of bounds, we panic
func (c ImageCrop) Crop(x1, y1, x2, y2 int) ImageCrop {
	nc := ImageCrop{
		NChan:       c.NChan,
		Pixels:      c.Pixels,
		ImageWidth:  c.ImageWidth,
		ImageHeight: c.ImageHeight,
		CropX:       c.CropX + x1,
		CropY:       c.CropY + y1,
		CropWidth:   x2 - x1,
		CropHeight:  y2 - y1,
	}
	if nc.CropX < 0 || nc.CropY < 0 || nc.CropWidth < 0 || nc.CropHeight < 0 || nc.CropX+nc.CropWidth > c.ImageWidth || nc.CropY+nc.CropHeight > c.ImageHeight {
		panic("Crop out of bounds")
	}
	return nc
}

// Row returns the pixels of row y of the crop
func (c ImageCrop) Row(y int) []byte {
	start := (c.CropY+y)*c.Stride() + c.CropX*c.NChan
	return c.Pixels[start : start+c.CropWidth*c.NChan]
}

// Return a 'crop' of the entire image
func WholeImage(nchan int, pixels []byte, width, height int) ImageCrop {
	return ImageCrop{
		NChan:       nchan,
		Pixels:      pixels,
		ImageWidth:  width,
		ImageHeight: height,
		CropX:       0,
		CropY:       0,
		CropWidth:   width,
		CropHeight:  height,
	}
}

// UniformImage creates an image where every channel of every pixel is 'value'.
// This is what we feed the detector during warm-up.
func UniformImage(nchan, width, height int, value byte) ImageCrop {
	pixels := make([]byte, nchan*width*height)
	for i := range pixels {
		pixels[i] = value
	}
	return WholeImage(nchan, pixels, width, height)
}

// ModelConfig is saved in a JSON file along with the weights of the NN model
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "faster_rcnn_zf"
	Width        int      `json:"width"`        // eg 500
	Height       int      `json:"height"`       // eg 300
	Classes      []string `json:"classes"`      // eg ["__background__", "aeroplane", "bicycle", ...]
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Load a text file with class names on each line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	return classes, scanner.Err()
}
