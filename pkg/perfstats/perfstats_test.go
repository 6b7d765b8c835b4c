package perfstats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeAccumulator(t *testing.T) {
	a := TimeAccumulator{}
	require.Equal(t, time.Duration(0), a.Average())
	require.Equal(t, time.Duration(0), a.AveragePer(0))

	a.AddSample(10 * time.Millisecond)
	a.AddSample(20 * time.Millisecond)
	a.AddSample(30 * time.Millisecond)
	require.Equal(t, int64(3), a.Samples)
	require.Equal(t, 60*time.Millisecond, a.Total)
	require.Equal(t, 20*time.Millisecond, a.Average())
	require.Equal(t, 10*time.Millisecond, a.AveragePer(6))

	a.Reset()
	require.Equal(t, int64(0), a.Samples)
	require.Equal(t, time.Duration(0), a.Total)
}

func TestSeconds(t *testing.T) {
	require.Equal(t, []float64{1.5, 0.25}, Seconds([]time.Duration{1500 * time.Millisecond, 250 * time.Millisecond}))
}
