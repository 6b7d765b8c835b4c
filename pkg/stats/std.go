package stats

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Float | constraints.Integer
}

// Returns (mean, variance) of the given samples.
func MeanVar[T Number](samples []T) (float64, float64) {
	mean := Mean(samples)
	variance := Variance(samples, mean)
	return mean, variance
}

// Returns the mean of the given samples, or zero if there are no samples.
func Mean[T Number](samples []T) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += float64(v)
	}
	return sum / float64(len(samples))
}

// Returns the population variance of the given samples (divides by N, not N-1).
func Variance[T Number](samples []T, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		diff := float64(v) - mean
		sum += diff * diff
	}
	return sum / float64(len(samples))
}

// Returns (mean, standard deviation) of the given samples.
// The standard deviation is the population form, so a single sample has a deviation of zero.
func MeanStdDev[T Number](samples []T) (float64, float64) {
	mean, variance := MeanVar(samples)
	return mean, math.Sqrt(variance)
}
