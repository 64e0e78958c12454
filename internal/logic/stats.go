package logic

import "math"

// normalCDF evaluates the standard normal CDF using the Abramowitz and
// Stegun 26.2.17 polynomial approximation. The experiment evaluator must
// be bit-reproducible across runs, so the coefficients are fixed rather
// than delegating to an erf-based implementation.
func normalCDF(x float64) float64 {
	const (
		a1 = 0.319381530
		a2 = -0.356563782
		a3 = 1.781477937
		a4 = -1.821255978
		a5 = 1.330274429
		p  = 0.2316419
	)

	absX := math.Abs(x)
	t := 1 / (1 + p*absX)
	phi := math.Exp(-0.5*absX*absX) / math.Sqrt(2*math.Pi)
	y := 1 - phi*(a1*t+a2*t*t+a3*t*t*t+a4*t*t*t*t+a5*t*t*t*t*t)
	if x < 0 {
		return 1 - y
	}
	return y
}

// chiSquarePValue1DF converts a chi-square statistic with one degree of
// freedom to a p-value via z = sqrt(chi2), X ~ Z^2 with Z ~ N(0,1).
// The result is clamped into [0,1].
func chiSquarePValue1DF(chi2 float64) float64 {
	if chi2 <= 0 {
		return 1
	}
	z := math.Sqrt(chi2)
	pUpper := 1 - normalCDF(z)
	return math.Min(1, math.Max(0, 2*pUpper))
}

// chiSquare2x2 builds the 2x2 contingency table for two models'
// correct/incorrect counts and returns the chi-square statistic.
// Cells with zero expected count contribute nothing.
func chiSquare2x2(x1, n1, x2, n2 int) float64 {
	a := float64(x1)      // champion successes
	b := float64(n1 - x1) // champion failures
	c := float64(x2)      // challenger successes
	d := float64(n2 - x2) // challenger failures

	row1 := a + b
	row2 := c + d
	col1 := a + c
	col2 := b + d
	total := row1 + row2
	if total == 0 {
		total = 1
	}

	ea := row1 * col1 / total
	eb := row1 * col2 / total
	ec := row2 * col1 / total
	ed := row2 * col2 / total

	var chi2 float64
	if ea > 0 {
		chi2 += (a - ea) * (a - ea) / ea
	}
	if eb > 0 {
		chi2 += (b - eb) * (b - eb) / eb
	}
	if ec > 0 {
		chi2 += (c - ec) * (c - ec) / ec
	}
	if ed > 0 {
		chi2 += (d - ed) * (d - ed) / ed
	}
	return chi2
}
