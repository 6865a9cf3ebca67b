// Package stats provides the small numeric toolkit shared by the forecasting and
// template scoring code: means, dispersion, least-squares fits and rounding.
//
// Every function is total: empty inputs, zero denominators and constant series
// return 0 rather than NaN or Inf.
package stats

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// MeanInts is Mean over integers.
func MeanInts(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// StdDevInts returns the population standard deviation (divide by n) of xs.
// Returns 0 for an empty slice.
func StdDevInts(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := MeanInts(xs)
	var variance float64
	for _, x := range xs {
		diff := float64(x) - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// Line is a fitted y = Intercept + Slope*x.
type Line struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// LinearRegression fits an ordinary least-squares line through (xs[i], ys[i]).
// Slope is 0 when Σ(x-x̄)² is 0 (all x identical) or when fewer than two points
// are given; the intercept is then the mean of ys. Mismatched lengths yield the
// zero line.
func LinearRegression(xs, ys []float64) Line {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return Line{}
	}
	meanX := Mean(xs)
	meanY := Mean(ys)

	var num, den float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		num += dx * (ys[i] - meanY)
		den += dx * dx
	}

	slope := 0.0
	if den != 0 {
		slope = num / den
	}
	return Line{Slope: slope, Intercept: meanY - slope*meanX}
}

// RSquared returns 1 - SSres/SStot of line over the points, clamped to [0,1].
// A constant series (SStot == 0) gives 0.
func RSquared(line Line, xs, ys []float64) float64 {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0
	}
	meanY := Mean(ys)
	var ssRes, ssTot float64
	for i := range ys {
		r := ys[i] - line.At(xs[i])
		ssRes += r * r
		d := ys[i] - meanY
		ssTot += d * d
	}
	if ssTot == 0 {
		return 0
	}
	return Clamp(1-ssRes/ssTot, 0, 1)
}

// Percent returns part/whole*100, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Round1 rounds x to one decimal place, half away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
