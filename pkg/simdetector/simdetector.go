package simdetector

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/chewxy/math32"
	"github.com/cyclopcam/detbench/pkg/nn"
)

// Package simdetector is a stand-in for a real object detection network.
// It produces plausible region proposals (a few objects per image, each with a cluster of
// overlapping boxes, plus background clutter), so that the post-processing path has real work
// to do. The output is derived from a hash of the image pixels, so the same image always
// produces the same output.

type Config struct {
	NumClasses   int           `json:"numClasses"`   // Including the background class
	Proposals    int           `json:"proposals"`    // Region proposals per image
	MaxObjects   int           `json:"maxObjects"`   // Each image gets between 0 and MaxObjects objects
	BatchLatency time.Duration `json:"batchLatency"` // Fixed cost of every DetectBatch call
	ImageLatency time.Duration `json:"imageLatency"` // Additional cost per image in the batch
	Sleep        bool          `json:"sleep"`        // Actually sleep for the simulated latency, and report the measured time
}

func DefaultConfig() Config {
	return Config{
		NumClasses:   len(nn.VOCClasses),
		Proposals:    300,
		MaxObjects:   3,
		BatchLatency: 5 * time.Millisecond,
		ImageLatency: 20 * time.Millisecond,
		Sleep:        true,
	}
}

func (c *Config) Validate() error {
	if c.NumClasses < 2 {
		return fmt.Errorf("%w: need at least 2 classes (including background), not %v", nn.ErrInvalidArgument, c.NumClasses)
	}
	if c.Proposals < 0 || c.MaxObjects < 0 {
		return fmt.Errorf("%w: proposals (%v) and max objects (%v) may not be negative", nn.ErrInvalidArgument, c.Proposals, c.MaxObjects)
	}
	if c.BatchLatency < 0 || c.ImageLatency < 0 {
		return fmt.Errorf("%w: negative latency", nn.ErrInvalidArgument)
	}
	return nil
}

// Latency returns the simulated forward-pass time of a batch of n images
func (c *Config) Latency(n int) time.Duration {
	return c.BatchLatency + time.Duration(n)*c.ImageLatency
}

// Detector implements nn.Detector
type Detector struct {
	config Config
}

func NewDetector(config Config) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Detector{
		config: config,
	}, nil
}

func (d *Detector) Config() Config {
	return d.config
}

func (d *Detector) DetectBatch(images []nn.ImageCrop) (*nn.BatchOutput, error) {
	start := time.Now()
	out := &nn.BatchOutput{
		Images: make([]nn.ImageOutput, len(images)),
	}
	for i, img := range images {
		if img.CropWidth <= 0 || img.CropHeight <= 0 || img.NChan <= 0 {
			return nil, fmt.Errorf("%w: image %v is empty (%v x %v x %v)", nn.ErrInvalidArgument, i, img.CropWidth, img.CropHeight, img.NChan)
		}
		out.Images[i] = d.detect(img)
	}
	latency := d.config.Latency(len(images))
	if d.config.Sleep {
		if remain := latency - time.Since(start); remain > 0 {
			time.Sleep(remain)
		}
		out.Elapsed = time.Since(start)
	} else {
		out.Elapsed = latency
	}
	return out, nil
}

// ImageHash is a hash of the dimensions and pixels of the crop
func ImageHash(img nn.ImageCrop) uint64 {
	h := xxhash.New()
	var dims [12]byte
	binary.LittleEndian.PutUint32(dims[0:], uint32(img.CropWidth))
	binary.LittleEndian.PutUint32(dims[4:], uint32(img.CropHeight))
	binary.LittleEndian.PutUint32(dims[8:], uint32(img.NChan))
	h.Write(dims[:])
	for y := 0; y < img.CropHeight; y++ {
		h.Write(img.Row(y))
	}
	return h.Sum64()
}

type object struct {
	class int
	box   nn.Box
}

func (d *Detector) detect(img nn.ImageCrop) nn.ImageOutput {
	seed := ImageHash(img)
	rng := rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
	nclass := d.config.NumClasses
	width := float32(img.CropWidth)
	height := float32(img.CropHeight)

	objects := make([]object, rng.IntN(d.config.MaxObjects+1))
	for i := range objects {
		objects[i] = object{
			class: 1 + rng.IntN(nclass-1),
			box:   randomBox(rng, width, height),
		}
	}

	out := nn.ImageOutput{
		Scores: make([][]float32, d.config.Proposals),
		Boxes:  make([][]float32, d.config.Proposals),
	}
	for p := 0; p < d.config.Proposals; p++ {
		scores := make([]float32, nclass)
		boxes := make([]float32, 4*nclass)

		// Half of the proposals cluster around objects, and the rest is background clutter
		var proposal nn.Box
		if len(objects) != 0 && rng.IntN(2) == 0 {
			obj := objects[rng.IntN(len(objects))]
			proposal = jitter(rng, obj.box, 0.1, width, height)
			scores[obj.class] = 0.5 + 0.5*rng.Float32()
			scores[0] = 1 - scores[obj.class]
		} else {
			proposal = randomBox(rng, width, height)
			noise := 0.2 * rng.Float32()
			scores[1+rng.IntN(nclass-1)] = noise
			scores[0] = 1 - noise
		}

		for c := 0; c < nclass; c++ {
			b := jitter(rng, proposal, 0.02, width, height)
			boxes[4*c+0] = b.X1
			boxes[4*c+1] = b.Y1
			boxes[4*c+2] = b.X2
			boxes[4*c+3] = b.Y2
		}
		out.Scores[p] = scores
		out.Boxes[p] = boxes
	}
	return out
}

// A random box covering between 5% and 50% of each image dimension
func randomBox(rng *rand.Rand, width, height float32) nn.Box {
	w := width * (0.05 + 0.45*rng.Float32())
	h := height * (0.05 + 0.45*rng.Float32())
	x := (width - w) * rng.Float32()
	y := (height - h) * rng.Float32()
	return nn.MakeBox(x, y, x+w, y+h)
}

// Move each edge of the box by up to 'amount' of the box size, and clip to the image
func jitter(rng *rand.Rand, b nn.Box, amount, width, height float32) nn.Box {
	dx := b.Width() * amount
	dy := b.Height() * amount
	offset := func(d float32) float32 {
		return d * (2*rng.Float32() - 1)
	}
	j := nn.MakeBox(b.X1+offset(dx), b.Y1+offset(dy), b.X2+offset(dx), b.Y2+offset(dy))
	j.X1 = math32.Max(0, j.X1)
	j.Y1 = math32.Max(0, j.Y1)
	j.X2 = math32.Min(width, j.X2)
	j.Y2 = math32.Min(height, j.Y2)
	return j
}
