package simdetector

import (
	"errors"
	"testing"
	"time"

	"github.com/cyclopcam/detbench/pkg/nn"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	c := DefaultConfig()
	c.Sleep = false
	return c
}

func noiseImage(seed byte, width, height int) nn.ImageCrop {
	img := nn.UniformImage(3, width, height, 0)
	for i := range img.Pixels {
		img.Pixels[i] = byte(i*7) + seed
	}
	return img
}

func TestDeterministic(t *testing.T) {
	det, err := NewDetector(testConfig())
	require.NoError(t, err)

	images := []nn.ImageCrop{noiseImage(1, 64, 48), noiseImage(2, 64, 48), noiseImage(1, 64, 48)}
	a, err := det.DetectBatch(images)
	require.NoError(t, err)
	b, err := det.DetectBatch(images)
	require.NoError(t, err)
	require.NoError(t, a.Validate(3))
	require.Equal(t, a.Images, b.Images)

	// Same pixels in a different batch position give the same output
	require.Equal(t, a.Images[0], a.Images[2])
	require.NotEqual(t, a.Images[0], a.Images[1])

	require.Equal(t, 300, a.Images[0].NumBoxes())
	require.Equal(t, len(nn.VOCClasses), a.Images[0].NumClasses())
	require.Equal(t, det.Config().Latency(3), a.Elapsed)
}

func TestBoxesInsideImage(t *testing.T) {
	det, err := NewDetector(testConfig())
	require.NoError(t, err)
	out, err := det.DetectBatch([]nn.ImageCrop{noiseImage(9, 100, 50)})
	require.NoError(t, err)
	img := out.Images[0]
	for c := 0; c < img.NumClasses(); c++ {
		for _, sb := range img.ClassScoredBoxes(c) {
			require.GreaterOrEqual(t, sb.Box.X1, float32(0))
			require.GreaterOrEqual(t, sb.Box.Y1, float32(0))
			require.LessOrEqual(t, sb.Box.X2, float32(100))
			require.LessOrEqual(t, sb.Box.Y2, float32(50))
			require.GreaterOrEqual(t, sb.Score, float32(0))
			require.LessOrEqual(t, sb.Score, float32(1))
		}
	}
}

func TestCrop(t *testing.T) {
	img := noiseImage(3, 40, 40)
	crop := img.Crop(10, 10, 30, 30)
	require.NotEqual(t, ImageHash(img), ImageHash(crop))

	// A copy of the crop's pixels into its own image hashes the same
	copied := nn.UniformImage(3, 20, 20, 0)
	for y := 0; y < 20; y++ {
		copy(copied.Row(y), crop.Row(y))
	}
	require.Equal(t, ImageHash(crop), ImageHash(copied))
}

func TestPostprocessable(t *testing.T) {
	det, err := NewDetector(testConfig())
	require.NoError(t, err)
	post, err := nn.NewPostprocessor(nn.NewDetectionParams())
	require.NoError(t, err)

	images := []nn.ImageCrop{}
	for i := 0; i < 8; i++ {
		images = append(images, noiseImage(byte(i), 80, 60))
	}
	out, err := det.DetectBatch(images)
	require.NoError(t, err)
	sets, err := post.ProcessBatch(out, true)
	require.NoError(t, err)
	require.Len(t, sets, 8)
	for _, set := range sets {
		_, hasBackground := set[0]
		require.False(t, hasBackground)
		// Object clusters collapse down to a handful of boxes
		require.LessOrEqual(t, set.Count(), 30)
	}
}

func TestSleep(t *testing.T) {
	c := testConfig()
	c.Sleep = true
	c.Proposals = 5
	c.BatchLatency = 5 * time.Millisecond
	c.ImageLatency = 5 * time.Millisecond
	det, err := NewDetector(c)
	require.NoError(t, err)
	start := time.Now()
	out, err := det.DetectBatch([]nn.ImageCrop{noiseImage(0, 8, 8), noiseImage(1, 8, 8)})
	require.NoError(t, err)
	require.GreaterOrEqual(t, out.Elapsed, 15*time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestConfigValidate(t *testing.T) {
	for _, mod := range []func(c *Config){
		func(c *Config) { c.NumClasses = 1 },
		func(c *Config) { c.Proposals = -1 },
		func(c *Config) { c.MaxObjects = -1 },
		func(c *Config) { c.ImageLatency = -time.Second },
	} {
		c := testConfig()
		mod(&c)
		_, err := NewDetector(c)
		require.True(t, errors.Is(err, nn.ErrInvalidArgument))
	}

	det, err := NewDetector(testConfig())
	require.NoError(t, err)
	_, err = det.DetectBatch([]nn.ImageCrop{{}})
	require.True(t, errors.Is(err, nn.ErrInvalidArgument))

	out, err := det.DetectBatch(nil)
	require.NoError(t, err)
	require.Empty(t, out.Images)
}
