package utils

import (
	"math"
	"math/rand"
	"slices"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Float | constraints.Integer
}

func SumSlice[T Number](arr []T) (r T) {
	for i := range arr {
		r += arr[i]
	}
	return
}

// SumSigned splits the sum of arr into its positive and negative parts.
func SumSigned[T Number](arr []T) (plus, minus T) {
	for i := range arr {
		if arr[i] > 0 {
			plus += arr[i]
		} else {
			minus += arr[i]
		}
	}
	return
}

func Average[T Number](s []T) (mean float64) {
	for i := range s {
		mean += float64(s[i])
	}
	mean /= float64(len(s))
	return
}

func MeanAndVariance[T Number](s []T, unbiased bool) (mean, variance float64) {
	mean = Average(s)
	for i := range s {
		variance += (float64(s[i]) - mean) * (float64(s[i]) - mean)
	}
	if unbiased {
		variance /= float64(len(s) - 1)
	} else {
		variance /= float64(len(s))
	}

	return
}

func IntAbs(a int) int {
	if a < 0 {
		return -a
	} else {
		return a
	}
}

func Sign(v float64) float64 {
	if v < 0 {
		return -1.
	}
	return 1.
}

// UniformOnSphere draws a unit vector with theta = acos(2u-1), phi = 2*pi*u'.
func UniformOnSphere(rng *rand.Rand) (x, y, z float64) {
	cosTheta := 2.*rng.Float64() - 1.
	phi := 2. * math.Pi * rng.Float64()
	sinTheta := math.Sqrt(math.FMA(cosTheta, -cosTheta, 1.))
	x = sinTheta * math.Cos(phi)
	y = sinTheta * math.Sin(phi)
	z = cosTheta
	return
}

func Maxwellian(rng *rand.Rand, drift, thermal [3]float64) (u, v, w float64) {
	u = drift[0] + thermal[0]*rng.NormFloat64()
	v = drift[1] + thermal[1]*rng.NormFloat64()
	w = drift[2] + thermal[2]*rng.NormFloat64()
	return
}

func Intersect(a, b []string) *string {
	for i := range a {
		if slices.Contains(b, a[i]) {
			return &a[i]
		}
	}
	return nil
}
