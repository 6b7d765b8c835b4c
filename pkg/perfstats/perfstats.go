package perfstats

import "time"

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// AveragePer divides Total by 'n' units (for example images), rather than by Samples.
// Returns zero if n is not positive.
func (a *TimeAccumulator) AveragePer(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / int64(n))
}

// Seconds returns a slice of durations in seconds, which is the unit we report in
func Seconds(durations []time.Duration) []float64 {
	s := make([]float64, len(durations))
	for i, d := range durations {
		s[i] = d.Seconds()
	}
	return s
}
