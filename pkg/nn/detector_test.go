package nn

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatchOutputValidate(t *testing.T) {
	good := makeImageOutput(3, []proposal{{1, 0.9, MakeBox(0, 0, 1, 1)}})
	out := &BatchOutput{Images: []ImageOutput{good, good}, Elapsed: time.Millisecond}
	require.NoError(t, out.Validate(2))

	require.True(t, errors.Is(out.Validate(3), ErrDetectorFailure))

	var nilOut *BatchOutput
	require.True(t, errors.Is(nilOut.Validate(1), ErrDetectorFailure))

	out.Elapsed = -time.Second
	require.True(t, errors.Is(out.Validate(2), ErrDetectorFailure))

	ragged := makeImageOutput(3, []proposal{{1, 0.9, MakeBox(0, 0, 1, 1)}, {2, 0.9, MakeBox(0, 0, 1, 1)}})
	ragged.Scores[1] = ragged.Scores[1][:2]
	out = &BatchOutput{Images: []ImageOutput{ragged}}
	require.True(t, errors.Is(out.Validate(1), ErrDetectorFailure))
}

func TestImageOutputAccessors(t *testing.T) {
	out := makeImageOutput(3, []proposal{
		{1, 0.9, MakeBox(1, 2, 3, 4)},
		{2, 0.7, MakeBox(5, 6, 7, 8)},
	})
	require.Equal(t, 2, out.NumBoxes())
	require.Equal(t, 3, out.NumClasses())
	require.Equal(t, []float32{0.9, 0}, out.ClassScores(1))
	require.Equal(t, []Box{MakeBox(1, 2, 3, 4), {}}, out.ClassBoxes(1))
	require.Equal(t, []ScoredBox{{}, {Box: MakeBox(5, 6, 7, 8), Score: 0.7}}, out.ClassScoredBoxes(2))

	empty := ImageOutput{}
	require.Equal(t, 0, empty.NumClasses())
	require.Equal(t, 0, empty.NumBoxes())
}

func TestWarmup(t *testing.T) {
	calls := 0
	det := DetectorFunc(func(images []ImageCrop) (*BatchOutput, error) {
		require.Len(t, images, 1)
		require.Equal(t, 500, images[0].CropWidth)
		require.Equal(t, 300, images[0].CropHeight)
		calls++
		return &BatchOutput{Images: []ImageOutput{{}}}, nil
	})
	img := UniformImage(3, 500, 300, 128)
	require.NoError(t, Warmup(det, img, 2))
	require.Equal(t, 2, calls)

	require.NoError(t, Warmup(det, img, 0))
	require.Equal(t, 2, calls)

	boom := errors.New("out of device memory")
	failing := DetectorFunc(func(images []ImageCrop) (*BatchOutput, error) {
		return nil, boom
	})
	err := Warmup(failing, img, 2)
	require.True(t, errors.Is(err, ErrDetectorFailure))
	require.True(t, errors.Is(err, boom))
}

func TestImageCrop(t *testing.T) {
	img := UniformImage(3, 10, 8, 128)
	require.Equal(t, 30, img.Stride())
	require.Len(t, img.Pixels, 240)
	for _, p := range img.Pixels {
		require.Equal(t, byte(128), p)
	}

	img.Pixels[(2*10+3)*3] = 7
	c := img.Crop(3, 2, 6, 5)
	require.Equal(t, 3, c.CropWidth)
	require.Equal(t, 3, c.CropHeight)
	require.Len(t, c.Row(0), 9)
	require.Equal(t, byte(7), c.Row(0)[0])

	require.Panics(t, func() { img.Crop(0, 0, 11, 1) })
}
